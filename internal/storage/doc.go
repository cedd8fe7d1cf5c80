// Package storage implements the object-store client used to fetch remote
// model inputs and publish rigged results.
//
// References use gs:// URIs. The client talks to the storage HTTP endpoint
// directly (GET/PUT object paths with an optional bearer token) and can be
// disabled entirely for local-only operation.
package storage

package storage

import "testing"

func TestSplitURI(t *testing.T) {
	cases := []struct {
		uri     string
		bucket  string
		key     string
		wantErr bool
	}{
		{"gs://bucket/model.glb", "bucket", "model.glb", false},
		{"gs://bucket/nested/path/model.glb", "bucket", "nested/path/model.glb", false},
		{"gs://bucket", "", "", true},
		{"gs://bucket/", "", "", true},
		{"s3://bucket/key", "", "", true},
		{"/local/path", "", "", true},
		{"", "", "", true},
	}

	for _, tc := range cases {
		bucket, key, err := SplitURI(tc.uri)
		if tc.wantErr {
			if err == nil {
				t.Errorf("SplitURI(%q): expected error", tc.uri)
			}
			continue
		}
		if err != nil {
			t.Errorf("SplitURI(%q): %v", tc.uri, err)
			continue
		}
		if bucket != tc.bucket || key != tc.key {
			t.Errorf("SplitURI(%q) = (%q, %q), want (%q, %q)", tc.uri, bucket, key, tc.bucket, tc.key)
		}
	}
}

func TestJoinURI(t *testing.T) {
	if got := JoinURI("results", "rigs", "hero.glb"); got != "gs://results/rigs/hero.glb" {
		t.Errorf("JoinURI = %q", got)
	}
	if got := JoinURI("results", "hero.glb"); got != "gs://results/hero.glb" {
		t.Errorf("JoinURI = %q", got)
	}
}

func TestIsRemote(t *testing.T) {
	if !IsRemote("gs://bucket/key") {
		t.Error("gs:// reference should be remote")
	}
	if IsRemote("/local/file.glb") {
		t.Error("local path should not be remote")
	}
}

package service

import (
	"encoding/json"

	"animrig/internal/rig"
)

// rigRequest mirrors the original service request body. Config fields absent
// from the JSON keep their flag defaults.
type rigRequest struct {
	InputURI     string     `json:"input_uri"`
	AnimationURI string     `json:"animation_uri,omitempty"`
	Config       rig.Config `json:"config"`
}

func (r *rigRequest) UnmarshalJSON(data []byte) error {
	type alias rigRequest
	tmp := alias{Config: rig.DefaultConfig()}
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	*r = rigRequest(tmp)
	return nil
}

type rigResponse struct {
	JobID     string `json:"job_id"`
	ResultURI string `json:"result_uri"`
}

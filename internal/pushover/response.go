package pushover

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/bark-labs/pushover-cli/internal/model"
)

// apiResponse models the service's standard response.
type apiResponse struct {
	Status  *int      `json:"status"`
	Request string    `json:"request"`
	Errors  []string  `json:"errors"`
	Sounds  soundList `json:"sounds"`
}

func (r *apiResponse) ok() bool {
	return r.Status != nil && *r.Status == 1
}

func decodeResponse(body []byte) (*apiResponse, error) {
	var payload apiResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	if payload.Status == nil {
		return nil, fmt.Errorf("missing status field")
	}
	return &payload, nil
}

// soundList keeps sounds in the order the service sent them. The service
// answers with an object of id to name; an array of descriptors is accepted
// as well.
type soundList []model.Sound

func (l *soundList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	switch data[0] {
	case '{':
		dec := json.NewDecoder(bytes.NewReader(data))
		if _, err := dec.Token(); err != nil {
			return err
		}
		var out soundList
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return err
			}
			id, ok := tok.(string)
			if !ok {
				return fmt.Errorf("unexpected sound key %v", tok)
			}
			var name string
			if err := dec.Decode(&name); err != nil {
				return fmt.Errorf("sound %q: %w", id, err)
			}
			out = append(out, model.Sound{ID: id, Name: name})
		}
		*l = out
		return nil
	case '[':
		var items []struct {
			ID    string `json:"id"`
			Sound string `json:"sound"`
			Name  string `json:"name"`
		}
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		out := make(soundList, 0, len(items))
		for _, item := range items {
			id := item.ID
			if id == "" {
				id = item.Sound
			}
			out = append(out, model.Sound{ID: id, Name: item.Name})
		}
		*l = out
		return nil
	}
	return fmt.Errorf("unexpected sounds payload")
}

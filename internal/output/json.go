package output

import (
	"encoding/json"

	"opcreach/pkg/model"
)

func ToJSON(r model.ProbeResult) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

package generation

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// errNoImage is returned when the response holds neither accepted shape.
var errNoImage = errors.New("no image found in response")

// titanResponse covers both accepted response shapes: a list of images
// or a single image field. Error is set by the model on rejected prompts.
type titanResponse struct {
	Images []string `json:"images"`
	Image  *string  `json:"image"`
	Error  *string  `json:"error"`
}

// decodeResponse extracts and decodes the first image of a model response.
func decodeResponse(body []byte) ([]byte, error) {
	var resp titanResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	var encoded string
	switch {
	case len(resp.Images) > 0:
		encoded = resp.Images[0]
	case resp.Image != nil && *resp.Image != "":
		encoded = *resp.Image
	case resp.Error != nil && *resp.Error != "":
		return nil, errors.New(*resp.Error)
	default:
		return nil, errNoImage
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errNoImage
	}
	return data, nil
}

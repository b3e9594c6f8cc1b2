package ipc

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"

	"github.com/matjam/smoothtile/internal/types"
	"resty.dev/v3"
)

func newClient() *resty.Client {
	path := SocketPath()
	client := resty.NewWithClient(&http.Client{
		Transport: &http.Transport{
			DialContext: func(_ context.Context, _, _ string) (net.Conn, error) {
				return net.Dial("unix", path)
			},
		},
	})

	client.SetBaseURL("http://smoothtile")
	client.SetHeader("Content-Type", "application/json")
	client.SetHeader("Accept", "application/json")
	client.SetHeader("User-Agent", "smoothtile")
	return client
}

func SendStatus() (*StatusResponse, error) {
	client := newClient()
	defer client.Close()

	result := StatusResponse{}
	response, err := client.R().SetResult(&result).Get("/status")
	if err != nil {
		return nil, err
	}
	if response.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("error getting status: %s", response.Status())
	}
	return &result, nil
}

func SendFrame(frame int, style types.Style) error {
	return post("/frame", FrameRequest{Frame: frame, Style: style})
}

func SendStop() error {
	return post("/stop", nil)
}

func post(path string, body any) error {
	client := newClient()
	defer client.Close()

	result := Response{}
	req := client.R()
	if body != nil {
		req.SetBody(body)
	}
	response, err := req.Post(path)
	if err != nil {
		return err
	}
	if response.StatusCode() != http.StatusOK {
		if json.Unmarshal(response.Bytes(), &result) == nil && result.Message != "" {
			return fmt.Errorf("%s: %s", response.Status(), result.Message)
		}
		return fmt.Errorf("error sending command: %s", response.Status())
	}
	return nil
}

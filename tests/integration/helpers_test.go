//go:build integration
// +build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
)

type startResponse struct {
	GameToken string `json:"gameToken"`
	Card      struct {
		Proposal string   `json:"proposal"`
		Choices  []struct {
			Label string `json:"label"`
		} `json:"choices"`
	} `json:"card"`
}

type answerResponse struct {
	Correct      bool   `json:"correct"`
	CorrectIndex int    `json:"correctIndex"`
	SuccessCount int    `json:"successCount"`
	GameToken    string `json:"gameToken"`
	Won          bool   `json:"won"`
}

func envOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func makeRequest(t *testing.T, method, url, token string, payload interface{}) *http.Response {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	return resp
}

func decodeInto(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	var errResp map[string]interface{}
	decodeInto(t, resp, &errResp)
	code, _ := errResp["error"].(string)
	return code
}

func startGame(t *testing.T, baseURL, mode string, grade int) startResponse {
	t.Helper()
	resp := makeRequest(t, http.MethodGet, fmt.Sprintf("%s/api/en/games/%s/%d/start", baseURL, mode, grade), "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start %s grade %d: status %d (code %s)", mode, grade, resp.StatusCode, errorCode(t, resp))
	}
	var out startResponse
	decodeInto(t, resp, &out)
	if out.GameToken == "" {
		t.Fatal("empty game token")
	}
	return out
}

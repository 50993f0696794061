package command

import (
	"encoding/json"
	"testing"
)

func TestBuildPathParams(t *testing.T) {
	cmd := Registry()["problem get"]
	params := Params{}
	params.Set("id", "99")

	req, err := BuildRequest(cmd, params)
	if err != nil {
		t.Fatalf("build request failed: %v", err)
	}
	if req.Path != "/api/v1/problems/99" {
		t.Fatalf("path = %q, want /api/v1/problems/99", req.Path)
	}
	if req.Method != "GET" {
		t.Fatalf("method = %q, want GET", req.Method)
	}
	if req.Body != nil {
		t.Fatalf("GET request should not carry a body")
	}
}

func TestBuildListQuery(t *testing.T) {
	cmd := Registry()["problem list"]
	params := Params{}
	params.Set("topic", "DP")
	params.Set("status", "Solved")
	params.Set("page", "2")

	req, err := BuildRequest(cmd, params)
	if err != nil {
		t.Fatalf("build request failed: %v", err)
	}
	want := "/api/v1/problems?page=2&status=Solved&topic=DP"
	if req.Path != want {
		t.Fatalf("path = %q, want %q", req.Path, want)
	}
}

func TestBuildUpdateOnlySuppliedFields(t *testing.T) {
	cmd := Registry()["problem update"]
	params := Params{}
	params.Set("id", "7")
	params.Set("status", "Solved")

	req, err := BuildRequest(cmd, params)
	if err != nil {
		t.Fatalf("build request failed: %v", err)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(req.Body, &payload); err != nil {
		t.Fatalf("unmarshal body failed: %v", err)
	}
	if len(payload) != 1 {
		t.Fatalf("payload = %v, want only status", payload)
	}
	if payload["status"] != "Solved" {
		t.Fatalf("status = %v, want Solved", payload["status"])
	}
}

func TestBuildUpdateRequiresAField(t *testing.T) {
	cmd := Registry()["problem update"]
	params := Params{}
	params.Set("id", "7")

	if _, err := BuildRequest(cmd, params); err == nil {
		t.Fatal("expected error for empty update")
	}
}

func TestBuildProfileUpdateBools(t *testing.T) {
	cmd := Registry()["profile update"]
	params := Params{}
	params.Set("bio", "grinding graphs")
	params.Set("notifications", "false")

	req, err := BuildRequest(cmd, params)
	if err != nil {
		t.Fatalf("build request failed: %v", err)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(req.Body, &payload); err != nil {
		t.Fatalf("unmarshal body failed: %v", err)
	}
	if payload["bio"] != "grinding graphs" {
		t.Fatalf("bio = %v", payload["bio"])
	}
	if payload["notifications"] != false {
		t.Fatalf("notifications = %v, want false", payload["notifications"])
	}

	params.Set("notifications", "maybe")
	if _, err := BuildRequest(cmd, params); err == nil {
		t.Fatal("expected error for invalid bool")
	}
}

func TestBuildSuggestQuery(t *testing.T) {
	cmd := Registry()["suggest similar"]
	params := Params{}
	params.Set("name", "Two Sum")
	params.Set("id", "two-sum")

	req, err := BuildRequest(cmd, params)
	if err != nil {
		t.Fatalf("build request failed: %v", err)
	}
	want := "/api/v1/suggestions?id=two-sum&name=Two+Sum"
	if req.Path != want {
		t.Fatalf("path = %q, want %q", req.Path, want)
	}
}

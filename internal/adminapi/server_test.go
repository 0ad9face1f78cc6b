package adminapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"asciisfu/internal/adminapi"
	"asciisfu/internal/relay"
	"asciisfu/internal/signaling"
)

func TestHandleRosterAndCalls(t *testing.T) {
	roster := signaling.NewRoster()
	ob := signaling.NewOutbox()
	roster.Register("alice", ob)

	calls := signaling.NewCallRegistry()
	calls.Create("alice", "bob")

	r := relay.New(calls)
	srv := adminapi.New(roster, calls, r)

	rosterRR := doRequest(t, srv, "/api/roster")
	var rosterBody struct {
		Users []string `json:"users"`
	}
	if err := json.Unmarshal(rosterRR.Body.Bytes(), &rosterBody); err != nil {
		t.Fatalf("decode roster: %v", err)
	}
	if len(rosterBody.Users) != 1 || rosterBody.Users[0] != "alice" {
		t.Fatalf("unexpected roster body: %+v", rosterBody)
	}

	callsRR := doRequest(t, srv, "/api/calls")
	var callsBody struct {
		Calls []struct {
			Participants  []string `json:"participants"`
			SidsRequested int      `json:"sids_requested"`
		} `json:"calls"`
	}
	if err := json.Unmarshal(callsRR.Body.Bytes(), &callsBody); err != nil {
		t.Fatalf("decode calls: %v", err)
	}
	if len(callsBody.Calls) != 1 || len(callsBody.Calls[0].Participants) != 2 {
		t.Fatalf("unexpected calls body: %+v", callsBody)
	}

	healthRR := doRequest(t, srv, "/health")
	if healthRR.Code != http.StatusOK {
		t.Fatalf("health status = %d", healthRR.Code)
	}
}

func doRequest(t *testing.T, srv *adminapi.Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	return rr
}

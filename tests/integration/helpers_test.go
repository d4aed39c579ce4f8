//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hrops/casetrack/internal/testutil"
)

var userCounter atomic.Int64

// registerUser creates a user with the given role and returns its id. The
// email is unique per call.
func registerUser(t *testing.T, client *testutil.Client, role, name string) (id, email string) {
	t.Helper()

	email = fmt.Sprintf("%s-%d@example.com", role, userCounter.Add(1))

	resp, err := client.POST("/api/v1/auth/register", map[string]string{
		"email":    email,
		"password": "password123",
		"name":     name,
		"role":     role,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, testutil.ReadBody(t, resp))

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data.ID, email
}

// loginClient registers a user with the given role and returns an
// authenticated client plus the user's id.
func loginClient(t *testing.T, role, name string) (*testutil.Client, string) {
	t.Helper()

	client := newTestClient()
	id, email := registerUser(t, client, role, name)
	client.LoginAs(t, email, "password123")
	return client, id
}

type employeeRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// createIncident creates an incident naming the given employees and
// returns its id.
func createIncident(t *testing.T, client *testutil.Client, employees ...employeeRef) string {
	t.Helper()

	resp, err := client.POST("/api/v1/incidents", map[string]interface{}{
		"category":      "attendance",
		"description":   "Repeated unexcused absences over two weeks",
		"occurred_at":   time.Now().Add(-48 * time.Hour).Format(time.RFC3339),
		"business_unit": "manufacturing",
		"employees":     employees,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, testutil.ReadBody(t, resp))

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data.ID
}

type approver struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// issueNotice creates a notice for the employee on the incident and
// returns the notice id.
func issueNotice(t *testing.T, client *testutil.Client, incidentID string, employee employeeRef, approvers []approver) string {
	t.Helper()

	resp, err := client.POST("/api/v1/notices", map[string]interface{}{
		"incident_id": incidentID,
		"employee":    employee,
		"allegation":  "Violation of attendance policy",
		"policy_refs": []string{"HR-ATT-001"},
		"approvers":   approvers,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, testutil.ReadBody(t, resp))

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data.ID
}

// recordDecision posts one approver's vote on a notice or resolution.
// kind is "notices" or "resolutions".
func recordDecision(t *testing.T, client *testutil.Client, kind, id, decision, reason string) (status, verdict string) {
	t.Helper()

	resp, err := client.POST("/api/v1/"+kind+"/"+id+"/decision", map[string]string{
		"decision": decision,
		"reason":   reason,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, testutil.ReadBody(t, resp))

	var result struct {
		Data struct {
			Record struct {
				Status string `json:"status"`
			} `json:"record"`
			Verdict string `json:"verdict"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data.Record.Status, result.Data.Verdict
}

// getStatus fetches a record and returns its status field.
func getStatus(t *testing.T, client *testutil.Client, kind, id string) string {
	t.Helper()

	resp, err := client.GET("/api/v1/" + kind + "/" + id)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, testutil.ReadBody(t, resp))

	var result struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data.Status
}

package repository

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/deppfellow/travelease-inquiry/internal/model"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

func testRecord(t *testing.T, id string) *model.Record {
	t.Helper()
	var sub model.Submission
	require.NoError(t, json.Unmarshal([]byte(`{
		"name": "Ana",
		"email": "a@b.com",
		"destination": "Paris",
		"startDate": "2025-06-01",
		"endDate": "2025-06-10",
		"travelers": 2,
		"services": {"flights": true, "hotels": false},
		"loyaltyId": "X1"
	}`), &sub))
	return model.NewRecord(&sub, id, testNow)
}

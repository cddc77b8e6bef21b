package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEarningsPerMonth(t *testing.T) {
	app, _, cfg := newTestApp(t)
	auth := sessionToken(t, cfg, uuid.New())

	customer := createCustomer(t, app, auth, "Jane Doe", "555-1")
	device := createDevice(t, app, auth, "Acme", "X1")
	action := createAction(t, app, auth, "Screen replacement", 80)

	// dated now, so it lands in the current month's bucket
	resp := doJSON(t, app, http.MethodPost, "/services/", map[string]interface{}{
		"customer":    customer["id"],
		"description": "display flickers",
		"devices":     []interface{}{device["id"]},
		"actions": []map[string]interface{}{
			{"id": action["id"], "price": 80, "quantity": 2},
		},
		"newDevices": []map[string]interface{}{
			{"id": device["id"], "price": 150, "quantity": 1},
		},
	}, auth)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	report := doJSON(t, app, http.MethodGet, "/reports/earningsPerMonth", nil, auth)
	require.Equal(t, http.StatusOK, report.StatusCode)

	var body struct {
		Labels []string  `json:"labels"`
		Data   []float64 `json:"data"`
	}
	decodeBody(t, report, &body)

	require.Len(t, body.Labels, 6)
	require.Len(t, body.Data, 6)

	assert.Equal(t, time.Now().Month().String(), body.Labels[5])
	// 80 * 2 actions plus 150 * 1 sold part
	assert.Equal(t, float64(310), body.Data[5])

	for _, earlier := range body.Data[:5] {
		assert.Equal(t, float64(0), earlier)
	}
}

func TestServiceCount(t *testing.T) {
	app, _, cfg := newTestApp(t)
	auth := sessionToken(t, cfg, uuid.New())

	customer := createCustomer(t, app, auth, "Jane Doe", "555-1")
	device := createDevice(t, app, auth, "Acme", "X1")

	createServiceOrder(t, app, auth, customer["id"].(string), device["id"].(string))
	createServiceOrder(t, app, auth, customer["id"].(string), device["id"].(string))

	received := doJSON(t, app, http.MethodPost, "/reports/serviceCount",
		map[string]string{"status": "received"}, auth)
	require.Equal(t, http.StatusOK, received.StatusCode)

	var body struct {
		Count int64 `json:"count"`
	}
	decodeBody(t, received, &body)
	assert.EqualValues(t, 2, body.Count)

	done := doJSON(t, app, http.MethodPost, "/reports/serviceCount",
		map[string]string{"status": "done"}, auth)
	require.Equal(t, http.StatusOK, done.StatusCode)
	decodeBody(t, done, &body)
	assert.EqualValues(t, 0, body.Count)
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		assert.Equal(t, tt.want, confirm(strings.NewReader(tt.input), &out, "? "), "input %q", tt.input)
		assert.Equal(t, "? ", out.String())
	}
}

func TestSlotsCommand(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/time-slots/available", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("serviceId"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":   true,
			"date":      "2025-03-04",
			"service":   map[string]any{"id": 2, "nameEn": "Extension"},
			"timeSlots": []string{"12:00", "15:00"},
		})
	}))
	defer api.Close()

	var out bytes.Buffer
	err := slots(context.Background(), []string{"-date", "2025-03-04", "-service", "2", "-api", api.URL}, &out)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-04 (Extension)\n  12:00\n  15:00\n", out.String())
}

func TestSlotsCommand_RequiresDate(t *testing.T) {
	err := slots(context.Background(), nil, &bytes.Buffer{})
	assert.EqualError(t, err, "-date is required")
}

func TestPrintSlots_Empty(t *testing.T) {
	var out bytes.Buffer
	printSlots(&out, "2025-03-04", "", nil)
	assert.Equal(t, "2025-03-04\n  no available slots\n", out.String())
}

package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		valid   bool
		wantErr bool
	}{
		{name: "rfc3339 with zone", input: "2024-03-01T10:20:30+02:00", want: time.Date(2024, 3, 1, 8, 20, 30, 0, time.UTC), valid: true},
		{name: "rfc3339 nano", input: "2024-03-01T10:20:30.123Z", want: time.Date(2024, 3, 1, 10, 20, 30, 123000000, time.UTC), valid: true},
		{name: "no zone", input: "2024-03-01T10:20:30", want: time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC), valid: true},
		{name: "sql datetime", input: "2024-03-01 10:20:30", want: time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC), valid: true},
		{name: "date only", input: "2024-03-01", want: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), valid: true},
		{name: "empty", input: "", valid: false},
		{name: "blank", input: "   ", valid: false},
		{name: "garbage", input: "next tuesday", wantErr: true},
		{name: "impossible day", input: "2024-02-31", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unparseable date")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.valid, got.Valid)
			if tt.valid {
				assert.True(t, tt.want.Equal(got.Time), "got %s", got.Time)
			}
		})
	}
}

func TestDateJSON(t *testing.T) {
	type holder struct {
		At Date `json:"at"`
	}

	t.Run("unset marshals to null", func(t *testing.T) {
		data, err := json.Marshal(holder{})
		require.NoError(t, err)
		assert.JSONEq(t, `{"at":null}`, string(data))
	})

	t.Run("set marshals to utc rfc3339", func(t *testing.T) {
		loc := time.FixedZone("AST", 3*60*60)
		data, err := json.Marshal(holder{At: NewDate(time.Date(2024, 5, 6, 12, 0, 0, 0, loc))})
		require.NoError(t, err)
		assert.JSONEq(t, `{"at":"2024-05-06T09:00:00Z"}`, string(data))
	})

	t.Run("null and empty string decode unset", func(t *testing.T) {
		for _, payload := range []string{`{"at":null}`, `{"at":""}`, `{}`} {
			var h holder
			require.NoError(t, json.Unmarshal([]byte(payload), &h), payload)
			assert.False(t, h.At.Valid, payload)
		}
	})

	t.Run("malformed string fails", func(t *testing.T) {
		var h holder
		err := json.Unmarshal([]byte(`{"at":"31/12/2024"}`), &h)
		require.Error(t, err)
	})

	t.Run("non string fails", func(t *testing.T) {
		var h holder
		err := json.Unmarshal([]byte(`{"at":12345}`), &h)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "string or null")
	})
}

func TestDateScanAndValue(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	var d Date
	require.NoError(t, d.Scan(now))
	assert.True(t, d.Valid)
	assert.True(t, now.Equal(d.Time))

	require.NoError(t, d.Scan(nil))
	assert.False(t, d.Valid)

	require.NoError(t, d.Scan("2024-01-02 03:04:05"))
	assert.True(t, d.Valid)
	assert.True(t, now.Equal(d.Time))

	assert.Error(t, d.Scan("not a date"))

	v, err := Date{}.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = NewDate(now).Value()
	require.NoError(t, err)
	assert.Equal(t, now, v)
}

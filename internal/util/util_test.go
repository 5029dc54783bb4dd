package util_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/freekieb7/calendar/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptional_UnmarshalJSON(t *testing.T) {
	type request struct {
		Title  util.Optional[string] `json:"title"`
		Active util.Optional[bool]   `json:"active"`
		Rank   util.Optional[int]    `json:"rank"`
	}

	tests := []struct {
		name string
		body string
		want request
	}{
		{name: "absent", body: `{}`, want: request{}},
		{name: "null", body: `{"title": null, "rank": null}`, want: request{}},
		{name: "zero_values_are_set", body: `{"title": "", "active": false, "rank": 0}`, want: request{
			Title:  util.Some(""),
			Active: util.Some(false),
			Rank:   util.Some(0),
		}},
		{name: "values", body: `{"title": "Budget review", "rank": 2}`, want: request{
			Title: util.Some("Budget review"),
			Rank:  util.Some(2),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got request
			require.NoError(t, json.Unmarshal([]byte(tt.body), &got))
			assert.Equal(t, tt.want, got)
		})
	}

	var bad request
	assert.Error(t, json.Unmarshal([]byte(`{"rank": "two"}`), &bad))
}

func TestOptional_UnwrapOr(t *testing.T) {
	assert.Equal(t, 3, util.Optional[int]{}.UnwrapOr(3))
	assert.Equal(t, 0, util.Some(0).UnwrapOr(3))
}

func TestRandomPassword(t *testing.T) {
	seen := make(map[string]bool)
	for range 20 {
		password, err := util.RandomPassword(12)
		require.NoError(t, err)
		assert.Len(t, password, 12)
		assert.Empty(t, strings.Trim(password, "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"))
		seen[password] = true
	}
	assert.Len(t, seen, 20)
}

package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/placemap/internal/layer"
)

func composeIDs(views []layer.View) []string {
	ids := make([]string, len(views))
	for i, v := range views {
		ids[i] = v.ID
	}
	return ids
}

func TestApplyCompose_TradeAreas(t *testing.T) {
	ctx := context.Background()
	c := testConfig(t)
	seedStore(t, c)
	env, err := initMapEnv(ctx, c, false)
	require.NoError(t, err)
	defer env.Close()

	err = applyCompose(ctx, env.Controller, composeRequest{
		DataType:     "trade-area",
		TradeAreas:   []string{"A"},
		RadiusMeters: 1800,
		Levels:       []int{50},
		Nearby:       true,
	})
	require.NoError(t, err)

	ids := composeIDs(layer.Views(env.Controller.Layers()))
	assert.Contains(t, ids, "trade-area-A-level-50")
	assert.NotContains(t, ids, "trade-area-A-level-30")
	assert.Contains(t, ids, layer.PlacesLayerID)
}

func TestApplyCompose_HomeZipcodes(t *testing.T) {
	ctx := context.Background()
	c := testConfig(t)
	seedStore(t, c)
	env, err := initMapEnv(ctx, c, false)
	require.NoError(t, err)
	defer env.Close()

	err = applyCompose(ctx, env.Controller, composeRequest{
		DataType:     "home-zipcodes",
		HomeZipcodes: "REF",
		RadiusMeters: 1800,
	})
	require.NoError(t, err)

	entries := env.Controller.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "home-zipcodes-REF", entries[0].ID)
	assert.Len(t, entries[0].HomeZipcodes, 2)
	assert.NotEmpty(t, env.Controller.Legend().HomeZipcodes)
}

func TestApplyCompose_Errors(t *testing.T) {
	ctx := context.Background()
	c := testConfig(t)
	seedStore(t, c)
	env, err := initMapEnv(ctx, c, false)
	require.NoError(t, err)
	defer env.Close()

	tests := []struct {
		name string
		req  composeRequest
	}{
		{"negative radius", composeRequest{RadiusMeters: -5}},
		{"unknown data type", composeRequest{DataType: "roads"}},
		{"places data type", composeRequest{DataType: "places"}},
		{"unknown level", composeRequest{Levels: []int{99}}},
		{"unknown place", composeRequest{TradeAreas: []string{"missing"}}},
		{"unavailable overlay", composeRequest{TradeAreas: []string{"B"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, applyCompose(ctx, env.Controller, tt.req))
		})
	}
}

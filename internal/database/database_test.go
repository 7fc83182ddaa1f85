package database

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuretru/Wibutler-Gateway/entity"
)

func TestSetAndMergeDevices(t *testing.T) {
	ctx := context.Background()
	Init(ctx)

	SetDevices(ctx, []entity.Device{
		{ID: "1", Name: "Flur", Components: []entity.Component{
			{Name: "BTN_0", Text: "Unten"},
			{Name: "SWT", Value: json.RawMessage(`"0U"`)},
		}},
		{ID: "2", Name: "Bad"},
	})
	require.Len(t, GetAllDevices(ctx), 2)

	MergeDevice(ctx, &entity.Device{ID: "1", Components: []entity.Component{
		{Name: "SWT", Value: json.RawMessage(`"0D"`)},
		{Name: "LVL", Value: json.RawMessage(`3`)},
	}})

	device, ok := GetDevice(ctx, "1")
	require.True(t, ok)
	assert.Equal(t, "Flur", device.Name)
	require.Len(t, device.Components, 3)
	assert.Equal(t, "BTN_0", device.Components[0].Name)
	assert.Equal(t, "0D", device.Components[1].StringValue())
	assert.Equal(t, "3", device.Components[2].StringValue())

	MergeDevice(ctx, &entity.Device{ID: "3", Name: "Neu"})
	_, ok = GetDevice(ctx, "3")
	assert.True(t, ok)
	_, ok = GetDevice(ctx, "4")
	assert.False(t, ok)
}

func TestSnapshotIsCopied(t *testing.T) {
	ctx := context.Background()
	Init(ctx)
	SetDevices(ctx, []entity.Device{{ID: "1", Components: []entity.Component{{Name: "BTN_0"}}}})

	device, _ := GetDevice(ctx, "1")
	device.Components[0].Name = "changed"

	again, _ := GetDevice(ctx, "1")
	assert.Equal(t, "BTN_0", again.Components[0].Name)
}

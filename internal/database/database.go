package database

import (
	"context"
	"sync"
	"time"

	"github.com/kuretru/Wibutler-Gateway/entity"
)

var (
	lock  sync.RWMutex
	memDb map[string]*MemoryCell
)

type MemoryCell struct {
	LastSeen time.Time
	Device   *entity.Device
}

func Init(_ context.Context) {
	lock.Lock()
	defer lock.Unlock()
	memDb = make(map[string]*MemoryCell)
}

// SetDevices 用网关返回的完整设备列表替换快照
func SetDevices(_ context.Context, devices []entity.Device) {
	now := time.Now()
	lock.Lock()
	defer lock.Unlock()

	memDb = make(map[string]*MemoryCell, len(devices))
	for i := range devices {
		device := cloneDevice(&devices[i])
		memDb[device.ID] = &MemoryCell{LastSeen: now, Device: device}
	}
}

// MergeDevice 把推送的数据点按名称合并进快照，未推送的数据点保持不变
func MergeDevice(_ context.Context, update *entity.Device) {
	now := time.Now()
	lock.Lock()
	defer lock.Unlock()
	if memDb == nil {
		memDb = make(map[string]*MemoryCell)
	}

	cell, ok := memDb[update.ID]
	if !ok {
		memDb[update.ID] = &MemoryCell{LastSeen: now, Device: cloneDevice(update)}
		return
	}
	cell.LastSeen = now
	if update.Name != "" {
		cell.Device.Name = update.Name
	}
	for _, component := range update.Components {
		replaced := false
		for i := range cell.Device.Components {
			if cell.Device.Components[i].Name == component.Name {
				cell.Device.Components[i] = component
				replaced = true
			}
		}
		if !replaced {
			cell.Device.Components = append(cell.Device.Components, component)
		}
	}
}

func GetDevice(_ context.Context, deviceId string) (*entity.Device, bool) {
	lock.RLock()
	defer lock.RUnlock()
	if cell, ok := memDb[deviceId]; ok {
		return cloneDevice(cell.Device), true
	}
	return nil, false
}

// GetAllDevices 返回快照的副本，键为设备 ID
func GetAllDevices(_ context.Context) map[string]*entity.Device {
	lock.RLock()
	defer lock.RUnlock()
	result := make(map[string]*entity.Device, len(memDb))
	for deviceId, cell := range memDb {
		result[deviceId] = cloneDevice(cell.Device)
	}
	return result
}

func cloneDevice(device *entity.Device) *entity.Device {
	result := &entity.Device{
		ID:         device.ID,
		Name:       device.Name,
		Components: make([]entity.Component, len(device.Components)),
	}
	copy(result.Components, device.Components)
	return result
}

package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// JSONMap maps onto a jsonb column.
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported type for JSONMap")
	}
	return json.Unmarshal(data, m)
}

// SystemLog represents a record in system_logs table
type SystemLog struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Level     string    `gorm:"column:level;size:10;not null" json:"level"` // DEBUG, INFO, WARN, ERROR, FATAL
	Message   string    `gorm:"column:message;type:text;not null" json:"message"`
	Module    string    `gorm:"column:module;size:100" json:"module"`
	Meta      JSONMap   `gorm:"column:meta;type:jsonb" json:"meta"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (SystemLog) TableName() string {
	return "system_logs"
}

// EmissionState is the single-row global emission difficulty. The schedule
// process rewrites it as aggregate active principal grows; the reward
// calculator only ever reads it.
type EmissionState struct {
	ID                   uint      `gorm:"primarykey" json:"id"`
	Difficulty           float64   `gorm:"not null;default:1" json:"difficulty"`
	TotalActivePrincipal float64   `gorm:"default:0" json:"total_active_principal"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (EmissionState) TableName() string {
	return "emission_state"
}

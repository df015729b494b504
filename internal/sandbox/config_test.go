package sandbox

import (
	"testing"
	"time"
)

func TestConfigValidateAppliesDefaults(t *testing.T) {
	var c Config
	c.Validate()

	if c.Image != DefaultImage {
		t.Errorf("Image = %q, want %q", c.Image, DefaultImage)
	}
	if c.MemoryMB != DefaultMemoryMB {
		t.Errorf("MemoryMB = %d, want %d", c.MemoryMB, DefaultMemoryMB)
	}
	if c.CPUPercent != DefaultCPUPercent {
		t.Errorf("CPUPercent = %v, want %v", c.CPUPercent, DefaultCPUPercent)
	}
	if c.KernelPort != DefaultKernelPort {
		t.Errorf("KernelPort = %d, want %d", c.KernelPort, DefaultKernelPort)
	}
	if c.StopGrace != DefaultStopGrace {
		t.Errorf("StopGrace = %v, want %v", c.StopGrace, DefaultStopGrace)
	}
}

func TestConfigValidateRejectsOutOfRangeCPU(t *testing.T) {
	tests := []struct {
		name string
		cpu  float64
		want float64
	}{
		{"zero", 0, DefaultCPUPercent},
		{"negative", -1, DefaultCPUPercent},
		{"above one core", 1.5, DefaultCPUPercent},
		{"valid", 0.25, 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Config{CPUPercent: tt.cpu}
			c.Validate()
			if c.CPUPercent != tt.want {
				t.Errorf("CPUPercent = %v, want %v", c.CPUPercent, tt.want)
			}
		})
	}
}

func TestConfigValidateKeepsExplicitValues(t *testing.T) {
	c := Config{
		Image:      "custom:latest",
		MemoryMB:   256,
		CPUPercent: 1.0,
		PidsLimit:  10,
		KernelPort: 9000,
		StopGrace:  2 * time.Second,
	}
	c.Validate()

	if c.Image != "custom:latest" || c.MemoryMB != 256 || c.CPUPercent != 1.0 ||
		c.PidsLimit != 10 || c.KernelPort != 9000 || c.StopGrace != 2*time.Second {
		t.Errorf("Validate mutated explicit values: %+v", c)
	}
}

package docker

import (
	"time"
)

// Config describes the sandbox containers.
type Config struct {
	// Image must provide gcc and sh.
	Image string
	// MemoryLimit in bytes, per container.
	MemoryLimit int64
	// CPULimit in CPUs, per container.
	CPULimit float64
	// Timeout covers compile and run together.
	Timeout time.Duration
	// PoolSize is the number of idle containers kept warm.
	PoolSize int
	// CompileFlags are passed to gcc before the source file.
	CompileFlags []string
}

// DefaultConfig returns limits suitable for short practice programs.
func DefaultConfig() Config {
	return Config{
		Image:        "gcc:14",
		MemoryLimit:  256 * 1024 * 1024,
		CPULimit:     0.5,
		Timeout:      10 * time.Second,
		PoolSize:     2,
		CompileFlags: []string{"-O2", "-std=c11", "-Wall"},
	}
}

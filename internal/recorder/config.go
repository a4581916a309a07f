package recorder

import "time"

type Config struct {
	Dir                     string
	FlushThresholdTicks     int
	FlushInterval           time.Duration
	MaxBufferSize           int
	MinFreeDiskBytes        int64
	MaxTickBytes            int
	MaxConsecutiveFailures  int
	RetryDelay              time.Duration
}

func DefaultConfig(dir string) Config {
	return Config{
		Dir:                    dir,
		FlushThresholdTicks:    100,
		FlushInterval:          10 * time.Second,
		MaxBufferSize:          5000,
		MinFreeDiskBytes:       100 * 1 << 20,
		MaxTickBytes:           1 << 20,
		MaxConsecutiveFailures: 10,
		RetryDelay:             50 * time.Millisecond,
	}
}

package logging

import (
	"time"

	"go.uber.org/zap"

	"code.kestrelchain.io/kestrel/types"
)

// String constructs a field with the given key and value.
func String(key, val string) zap.Field {
	return zap.String(key, val)
}

// Strings constructs a field with the given key and value.
func Strings(key string, val []string) zap.Field {
	return zap.Strings(key, val)
}

// Int constructs a field with the given key and value.
func Int(key string, val int) zap.Field {
	return zap.Int(key, val)
}

// Int64 constructs a field with the given key and value.
func Int64(key string, val int64) zap.Field {
	return zap.Int64(key, val)
}

// Uint64 constructs a field with the given key and value.
func Uint64(key string, val uint64) zap.Field {
	return zap.Uint64(key, val)
}

// Float64 constructs a field with the given key and value.
func Float64(key string, val float64) zap.Field {
	return zap.Float64(key, val)
}

// Bool constructs a field with the given key and value.
func Bool(key string, val bool) zap.Field {
	return zap.Bool(key, val)
}

// Duration constructs a field with the given key and value.
func Duration(key string, val time.Duration) zap.Field {
	return zap.Duration(key, val)
}

// Time constructs a field with the given key and value.
func Time(key string, val time.Time) zap.Field {
	return zap.Time(key, val)
}

// Error constructs a field that carries an error.
func Error(err error) zap.Field {
	return zap.Error(err)
}

// Slot constructs a field holding a ledger slot.
func Slot(key string, val types.Slot) zap.Field {
	return zap.Uint64(key, uint64(val))
}

// Epoch constructs a field holding an epoch number.
func Epoch(key string, val types.Epoch) zap.Field {
	return zap.Uint64(key, uint64(val))
}

// Hash constructs a field holding a content hash, hex encoded.
func Hash(key string, val types.Hash) zap.Field {
	return zap.String(key, val.String())
}

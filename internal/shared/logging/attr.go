package logging

import "log/slog"

// Error records err under "error". A nil error yields an empty attr, which slog drops.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the acting user under "user_id".
func UserID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("user_id", id)
}

// Component records the emitting component under "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// ObjectKey records an object store key under "object_key".
func ObjectKey(key string) slog.Attr {
	return slog.String("object_key", key)
}

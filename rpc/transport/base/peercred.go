package base

import "fmt"

// Credentials identify the peer process of a unix socket connection
type Credentials struct {
	PID int32
	UID uint32
	GID uint32
}

func (c Credentials) String() string {
	return fmt.Sprintf("pid=%d uid=%d gid=%d", c.PID, c.UID, c.GID)
}

package shm

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"sync/atomic"
)

var instances atomic.Int64

// NewInstanceID returns an id unique to this process and call.
func NewInstanceID() string {
	return fmt.Sprintf("%d-%d", os.Getpid(), instances.Add(1))
}

// Keys derives the overlay and frame segment keys for an instance.
func Keys(instanceID string) (osd, frame int) {
	return deriveKey(instanceID + "osd"), deriveKey(instanceID + "frame")
}

func deriveKey(seed string) int {
	sum := md5.Sum([]byte(seed))

	// seven hex digits always fit a positive int32
	k, _ := strconv.ParseInt(hex.EncodeToString(sum[:])[:7], 16, 64)
	return int(k)
}

package waypost

import "sync"

// instanceRegistry maps opaque u64 handles to live instances. One lock
// covers everything; routing traffic never touches the registry on the hot
// path, the host caches the handle's instance after creation.
var instanceRegistry = struct {
	mutex      sync.Mutex
	instances  map[uint64]*Waypost
	nextHandle uint64
}{
	instances:  map[uint64]*Waypost{},
	nextHandle: 1,
}

// RegisterInstance adds the w to the registry and returns its handle.
// Handles are monotonic; 0 is never issued.
func RegisterInstance(w *Waypost) uint64 {
	instanceRegistry.mutex.Lock()
	defer instanceRegistry.mutex.Unlock()

	handle := instanceRegistry.nextHandle
	instanceRegistry.nextHandle++
	instanceRegistry.instances[handle] = w

	return handle
}

// LookupInstance returns the instance of the handle, or nil. The handle 0
// is always unknown.
func LookupInstance(handle uint64) *Waypost {
	if handle == 0 {
		return nil
	}

	instanceRegistry.mutex.Lock()
	defer instanceRegistry.mutex.Unlock()

	return instanceRegistry.instances[handle]
}

// UnregisterInstance removes and returns the instance of the handle. The
// entry is gone before any memory is reclaimed, so a raced lookup either
// sees the live instance or nothing.
func UnregisterInstance(handle uint64) *Waypost {
	if handle == 0 {
		return nil
	}

	instanceRegistry.mutex.Lock()
	defer instanceRegistry.mutex.Unlock()

	w := instanceRegistry.instances[handle]
	delete(instanceRegistry.instances, handle)

	return w
}

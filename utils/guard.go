package utils

// Guard runs a cleanup function when a constructor fails part way. Usage:
//
//	guard := NewGuard(func() { conn.Close() })
//	defer guard.OnFail()
//	if err := stream.Open(); err != nil { return err }
//	guard.Success()
//	return nil
type Guard struct {
	OnFail  func()
	success bool
}

// NewGuard returns a Guard that calls `onFailCleanup` from OnFail unless Success was called.
func NewGuard(onFailCleanup func()) *Guard {
	ret := &Guard{}
	ret.OnFail = func() {
		if !ret.success {
			onFailCleanup()
		}
	}
	return ret
}

// Success declares the function succeeded and the cleanup does not need to run.
func (guard *Guard) Success() {
	guard.success = true
}

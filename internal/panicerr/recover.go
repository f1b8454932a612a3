package panicerr

// Recover runs f, turning any panic into a non-nil error return instead of
// propagating it. The VM and compiler are single-threaded, so this is a
// plain call-then-defer-recover: no goroutine or channel handoff is needed.
func Recover(name string, f func() error) (err error) {
	defer func() {
		if pe := recoverPanicError(name, recover()); pe != nil {
			err = pe
		}
	}()
	return f()
}

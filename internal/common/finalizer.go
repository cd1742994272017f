package common

import "slices"

const FinalizerName = "queue.k8s.io/cleanup"

// objectWithFinalizers is any object that has Get/SetFinalizers.
type objectWithFinalizers interface {
	GetFinalizers() []string
	SetFinalizers([]string)
}

// HasFinalizer returns true if the object has the given finalizer.
func HasFinalizer(obj objectWithFinalizers, finalizer string) bool {
	return slices.Contains(obj.GetFinalizers(), finalizer)
}

// AddFinalizer adds the finalizer if not already present.
// It reports whether the object changed.
func AddFinalizer(obj objectWithFinalizers, finalizer string) bool {
	if HasFinalizer(obj, finalizer) {
		return false
	}
	obj.SetFinalizers(append(obj.GetFinalizers(), finalizer))
	return true
}

// RemoveFinalizer removes the finalizer if present.
// It reports whether the object changed.
func RemoveFinalizer(obj objectWithFinalizers, finalizer string) bool {
	if !HasFinalizer(obj, finalizer) {
		return false
	}
	obj.SetFinalizers(slices.DeleteFunc(slices.Clone(obj.GetFinalizers()), func(f string) bool {
		return f == finalizer
	}))
	return true
}

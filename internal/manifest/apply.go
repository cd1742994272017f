package manifest

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// Apply creates or updates each object in order. Objects without a namespace
// are placed in namespace. Existing claims are left untouched because their
// spec is immutable once bound.
func Apply(ctx context.Context, c client.Client, objs []client.Object, namespace string) error {
	logger := log.FromContext(ctx)

	for _, obj := range objs {
		if obj.GetNamespace() == "" {
			obj.SetNamespace(namespace)
		}
		kind := kindOf(obj)

		result, err := applyOne(ctx, c, obj)
		if err != nil {
			return fmt.Errorf("apply %s %s/%s: %w", kind, obj.GetNamespace(), obj.GetName(), err)
		}
		logger.Info("applied object", "kind", kind, "namespace", obj.GetNamespace(), "name", obj.GetName(), "result", result)
	}
	return nil
}

func applyOne(ctx context.Context, c client.Client, obj client.Object) (controllerutil.OperationResult, error) {
	existing, ok := obj.DeepCopyObject().(client.Object)
	if !ok {
		return controllerutil.OperationResultNone, fmt.Errorf("%T is not a client.Object", obj)
	}
	err := c.Get(ctx, client.ObjectKeyFromObject(obj), existing)
	if apierrors.IsNotFound(err) {
		if err := c.Create(ctx, obj); err != nil {
			return controllerutil.OperationResultNone, err
		}
		return controllerutil.OperationResultCreated, nil
	}
	if err != nil {
		return controllerutil.OperationResultNone, err
	}

	switch desired := obj.(type) {
	case *corev1.PersistentVolumeClaim:
		return controllerutil.OperationResultNone, nil
	case *corev1.Service:
		current := existing.(*corev1.Service)
		if desired.Spec.ClusterIP == "" {
			desired.Spec.ClusterIP = current.Spec.ClusterIP
			desired.Spec.ClusterIPs = current.Spec.ClusterIPs
		}
	}

	obj.SetResourceVersion(existing.GetResourceVersion())
	if err := c.Update(ctx, obj); err != nil {
		return controllerutil.OperationResultNone, err
	}
	return controllerutil.OperationResultUpdated, nil
}

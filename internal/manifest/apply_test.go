package manifest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"github.com/mrrauch/queue-operator/internal/common"
)

func TestApply_CreatesDeclaration(t *testing.T) {
	c := fake.NewClientBuilder().WithScheme(common.SetupScheme()).Build()
	ctx := context.Background()

	err := Apply(ctx, c, Objects(DefaultParams(), ClaimOptions{Create: true}), "messaging")
	require.NoError(t, err)

	key := types.NamespacedName{Name: "queue", Namespace: "messaging"}
	svc := &corev1.Service{}
	require.NoError(t, c.Get(ctx, key, svc))
	assert.Equal(t, int32(5672), svc.Spec.Ports[0].Port)

	deploy := &appsv1.Deployment{}
	require.NoError(t, c.Get(ctx, key, deploy))
	assert.Equal(t, int32(1), *deploy.Spec.Replicas)

	claim := &corev1.PersistentVolumeClaim{}
	require.NoError(t, c.Get(ctx, types.NamespacedName{Name: "queuedb", Namespace: "messaging"}, claim))
}

func TestApply_UpdatesExisting(t *testing.T) {
	existingSvc := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Name: "queue", Namespace: "messaging"},
		Spec: corev1.ServiceSpec{
			ClusterIP: "10.96.0.20",
			Ports:     []corev1.ServicePort{{Name: "amqp", Port: 5673}},
		},
	}
	existingClaim := &corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{Name: "queuedb", Namespace: "messaging"},
		Spec: corev1.PersistentVolumeClaimSpec{
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{corev1.ResourceStorage: resource.MustParse("1Gi")},
			},
		},
	}
	c := fake.NewClientBuilder().
		WithScheme(common.SetupScheme()).
		WithObjects(existingSvc, existingClaim).
		Build()
	ctx := context.Background()

	err := Apply(ctx, c, Objects(DefaultParams(), ClaimOptions{Create: true}), "messaging")
	require.NoError(t, err)

	svc := &corev1.Service{}
	require.NoError(t, c.Get(ctx, types.NamespacedName{Name: "queue", Namespace: "messaging"}, svc))
	assert.Equal(t, "10.96.0.20", svc.Spec.ClusterIP)
	assert.Equal(t, int32(5672), svc.Spec.Ports[0].Port)
	assert.Equal(t, "production", svc.Spec.Selector["env"])

	claim := &corev1.PersistentVolumeClaim{}
	require.NoError(t, c.Get(ctx, types.NamespacedName{Name: "queuedb", Namespace: "messaging"}, claim))
	size := claim.Spec.Resources.Requests[corev1.ResourceStorage]
	assert.Equal(t, "1Gi", size.String(), "existing claim must not be resized")
}

func TestApply_KeepsExplicitNamespace(t *testing.T) {
	c := fake.NewClientBuilder().WithScheme(common.SetupScheme()).Build()
	ctx := context.Background()

	p := DefaultParams()
	p.Namespace = "brokers"
	require.NoError(t, Apply(ctx, c, Objects(p, ClaimOptions{}), "messaging"))

	svc := &corev1.Service{}
	assert.NoError(t, c.Get(ctx, types.NamespacedName{Name: "queue", Namespace: "brokers"}, svc))
}

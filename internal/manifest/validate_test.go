package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/apimachinery/pkg/util/validation/field"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

func canonical() (*corev1.Service, *appsv1.Deployment) {
	return BuildService(DefaultParams()), BuildDeployment(DefaultParams())
}

func hasError(errs field.ErrorList, errType field.ErrorType, path string) bool {
	for _, err := range errs {
		if err.Type == errType && err.Field == path {
			return true
		}
	}
	return false
}

func TestValidate_Canonical(t *testing.T) {
	svc, deploy := canonical()
	errs := Validate([]client.Object{svc, deploy}, DefaultParams())
	assert.Empty(t, errs, errs.ToAggregate())
}

func TestValidate_CustomParams(t *testing.T) {
	p := Params{Name: "broker", Environment: "staging", Port: 5673, ClaimName: "brokerdb", MountPath: "/data"}
	errs := Validate(Objects(p, ClaimOptions{Create: true}), p)
	assert.Empty(t, errs, errs.ToAggregate())

	errs = Validate(Objects(p, ClaimOptions{}), DefaultParams())
	assert.NotEmpty(t, errs)
}

func TestValidate_Violations(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(svc *corev1.Service, deploy *appsv1.Deployment)
		errType field.ErrorType
		path    string
	}{
		{
			name:    "more than one replica",
			mutate:  func(_ *corev1.Service, d *appsv1.Deployment) { d.Spec.Replicas = ptr.To(int32(3)) },
			errType: field.ErrorTypeInvalid,
			path:    "Deployment[queue].spec.replicas",
		},
		{
			name:    "replicas left to the server default",
			mutate:  func(_ *corev1.Service, d *appsv1.Deployment) { d.Spec.Replicas = nil },
			errType: field.ErrorTypeRequired,
			path:    "Deployment[queue].spec.replicas",
		},
		{
			name: "service selects another environment",
			mutate: func(s *corev1.Service, _ *appsv1.Deployment) {
				s.Spec.Selector = map[string]string{"app": "queue", "env": "staging"}
			},
			errType: field.ErrorTypeInvalid,
			path:    "Service[queue].spec.selector",
		},
		{
			name:    "service without selector",
			mutate:  func(s *corev1.Service, _ *appsv1.Deployment) { s.Spec.Selector = nil },
			errType: field.ErrorTypeRequired,
			path:    "Service[queue].spec.selector",
		},
		{
			name: "pod template misses a selected label",
			mutate: func(_ *corev1.Service, d *appsv1.Deployment) {
				d.Spec.Template.Labels = map[string]string{"app": "queue"}
			},
			errType: field.ErrorTypeInvalid,
			path:    "Deployment[queue].spec.template.metadata.labels",
		},
		{
			name: "deployment selector is empty",
			mutate: func(_ *corev1.Service, d *appsv1.Deployment) {
				d.Spec.Selector = &metav1.LabelSelector{}
			},
			errType: field.ErrorTypeRequired,
			path:    "Deployment[queue].spec.selector",
		},
		{
			name:    "service renamed",
			mutate:  func(s *corev1.Service, _ *appsv1.Deployment) { s.Name = "Queue_1" },
			errType: field.ErrorTypeInvalid,
			path:    "Service[Queue_1].metadata.name",
		},
		{
			name: "target port differs",
			mutate: func(s *corev1.Service, _ *appsv1.Deployment) {
				s.Spec.Ports[0].TargetPort = intstr.FromInt32(8080)
			},
			errType: field.ErrorTypeInvalid,
			path:    "Service[queue].spec.ports[0].targetPort",
		},
		{
			name: "named target port unknown to the container",
			mutate: func(s *corev1.Service, _ *appsv1.Deployment) {
				s.Spec.Ports[0].TargetPort = intstr.FromString("web")
			},
			errType: field.ErrorTypeInvalid,
			path:    "Service[queue].spec.ports[0].targetPort",
		},
		{
			name:    "service port missing",
			mutate:  func(s *corev1.Service, _ *appsv1.Deployment) { s.Spec.Ports[0].Port = 15672 },
			errType: field.ErrorTypeRequired,
			path:    "Service[queue].spec.ports",
		},
		{
			name: "udp service port",
			mutate: func(s *corev1.Service, _ *appsv1.Deployment) {
				s.Spec.Ports[0].Protocol = corev1.ProtocolUDP
			},
			errType: field.ErrorTypeNotSupported,
			path:    "Service[queue].spec.ports[0].protocol",
		},
		{
			name: "container does not expose the broker port",
			mutate: func(_ *corev1.Service, d *appsv1.Deployment) {
				d.Spec.Template.Spec.Containers[0].Ports[0].ContainerPort = 15672
			},
			errType: field.ErrorTypeRequired,
			path:    "Deployment[queue].spec.template.spec.containers",
		},
		{
			name: "volume backed by another claim",
			mutate: func(_ *corev1.Service, d *appsv1.Deployment) {
				d.Spec.Template.Spec.Volumes[0].PersistentVolumeClaim.ClaimName = "otherdb"
			},
			errType: field.ErrorTypeInvalid,
			path:    "Deployment[queue].spec.template.spec.volumes[0].persistentVolumeClaim.claimName",
		},
		{
			name: "claim volume mounted elsewhere",
			mutate: func(_ *corev1.Service, d *appsv1.Deployment) {
				d.Spec.Template.Spec.Containers[0].VolumeMounts[0].MountPath = "/data"
			},
			errType: field.ErrorTypeRequired,
			path:    "Deployment[queue].spec.template.spec.containers[0].volumeMounts",
		},
		{
			name: "broker told to listen elsewhere",
			mutate: func(_ *corev1.Service, d *appsv1.Deployment) {
				c := &d.Spec.Template.Spec.Containers[0]
				c.Env = append(c.Env, corev1.EnvVar{Name: EnvNodePort, Value: "5673"})
			},
			errType: field.ErrorTypeInvalid,
			path:    "Deployment[queue].spec.template.spec.containers[0].env[RABBITMQ_NODE_PORT]",
		},
		{
			name: "broker data outside the claim mount",
			mutate: func(_ *corev1.Service, d *appsv1.Deployment) {
				c := &d.Spec.Template.Spec.Containers[0]
				c.Env = append(c.Env, corev1.EnvVar{Name: EnvMnesiaBase, Value: "/tmp/mnesia"})
			},
			errType: field.ErrorTypeInvalid,
			path:    "Deployment[queue].spec.template.spec.containers[0].env[RABBITMQ_MNESIA_BASE]",
		},
		{
			name: "mount of an undeclared volume",
			mutate: func(_ *corev1.Service, d *appsv1.Deployment) {
				c := &d.Spec.Template.Spec.Containers[0]
				c.VolumeMounts = append(c.VolumeMounts, corev1.VolumeMount{Name: "scratch", MountPath: "/tmp"})
			},
			errType: field.ErrorTypeNotFound,
			path:    "Deployment[queue].spec.template.spec.containers[0].volumeMounts[1].name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, deploy := canonical()
			tt.mutate(svc, deploy)
			errs := Validate([]client.Object{svc, deploy}, DefaultParams())
			assert.True(t, hasError(errs, tt.errType, tt.path), "expected %s at %s, got %v", tt.errType, tt.path, errs)
		})
	}
}

func TestValidate_NamedTargetPort(t *testing.T) {
	svc, deploy := canonical()
	svc.Spec.Ports[0].TargetPort = intstr.FromString(DefaultPortName)
	errs := Validate([]client.Object{svc, deploy}, DefaultParams())
	assert.Empty(t, errs, errs.ToAggregate())
}

func TestValidate_ObjectCounts(t *testing.T) {
	svc, deploy := canonical()

	errs := Validate([]client.Object{deploy}, DefaultParams())
	assert.True(t, hasError(errs, field.ErrorTypeRequired, "manifest.Service"), errs)

	errs = Validate([]client.Object{svc, deploy, deploy.DeepCopy()}, DefaultParams())
	assert.True(t, hasError(errs, field.ErrorTypeTooMany, "manifest.Deployment"), errs)

	cm := &corev1.ConfigMap{TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "ConfigMap"}}
	errs = Validate([]client.Object{svc, deploy, cm}, DefaultParams())
	assert.True(t, hasError(errs, field.ErrorTypeNotSupported, "manifest[2].kind"), errs)
}

func TestValidate_ClaimName(t *testing.T) {
	svc, deploy := canonical()
	p := DefaultParams()
	p.ClaimName = "otherdb"
	claim := BuildClaim(p, ClaimOptions{})

	errs := Validate([]client.Object{claim, svc, deploy}, DefaultParams())
	assert.True(t, hasError(errs, field.ErrorTypeInvalid, "PersistentVolumeClaim[otherdb].metadata.name"), errs)
}

func TestValidate_CustomPortNeedsListener(t *testing.T) {
	p := Params{Port: 5673, MountPath: "/data"}.WithDefaults()
	deploy := BuildDeployment(p)
	deploy.Spec.Template.Spec.Containers[0].Env = nil

	errs := Validate([]client.Object{BuildService(p), deploy}, p)
	assert.True(t, hasError(errs, field.ErrorTypeInvalid, "Deployment[queue].spec.template.spec.containers[0].env[RABBITMQ_NODE_PORT]"), errs)
	assert.True(t, hasError(errs, field.ErrorTypeInvalid, "Deployment[queue].spec.template.spec.containers[0].env[RABBITMQ_MNESIA_BASE]"), errs)
}

func TestValidate_AtMostOneClaim(t *testing.T) {
	svc, deploy := canonical()
	claim := BuildClaim(DefaultParams(), ClaimOptions{})

	errs := Validate([]client.Object{claim, claim.DeepCopy(), svc, deploy}, DefaultParams())
	assert.True(t, hasError(errs, field.ErrorTypeTooMany, "manifest.PersistentVolumeClaim"), errs)

	errs = Validate([]client.Object{claim, svc, deploy}, DefaultParams())
	assert.Empty(t, errs, errs.ToAggregate())
}

package manifest

import (
	"path"
	"strconv"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/mrrauch/queue-operator/internal/common"
)

const defaultClaimSize = "10Gi"

// Broker environment variables that move the listener and the data directory.
const (
	EnvNodePort   = "RABBITMQ_NODE_PORT"
	EnvMnesiaBase = "RABBITMQ_MNESIA_BASE"
)

// BuildService returns the Service forwarding the broker port to the labeled pod.
func BuildService(p Params) *corev1.Service {
	p = p.WithDefaults()
	svc := &corev1.Service{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Service"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      p.Name,
			Namespace: p.Namespace,
		},
	}
	MutateService(svc, p)
	return svc
}

// MutateService writes the desired Service fields onto svc.
// Server-assigned fields such as ClusterIP are left alone.
func MutateService(svc *corev1.Service, p Params) {
	p = p.WithDefaults()
	svc.Labels = mergeLabels(svc.Labels, Labels(p))
	svc.Spec.Selector = Labels(p)
	svc.Spec.Ports = []corev1.ServicePort{
		{
			Name:       DefaultPortName,
			Port:       p.Port,
			TargetPort: intstr.FromInt32(p.Port),
			Protocol:   corev1.ProtocolTCP,
		},
	}
}

// BuildDeployment returns the single-replica broker Deployment.
func BuildDeployment(p Params) *appsv1.Deployment {
	p = p.WithDefaults()
	deploy := &appsv1.Deployment{
		TypeMeta: metav1.TypeMeta{APIVersion: "apps/v1", Kind: "Deployment"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      p.Name,
			Namespace: p.Namespace,
		},
	}
	MutateDeployment(deploy, p)
	return deploy
}

// MutateDeployment writes the desired Deployment fields onto deploy.
func MutateDeployment(deploy *appsv1.Deployment, p Params) {
	p = p.WithDefaults()
	labels := Labels(p)

	deploy.Labels = mergeLabels(deploy.Labels, labels)
	deploy.Spec.Replicas = ptr.To(Replicas)
	deploy.Spec.Selector = &metav1.LabelSelector{MatchLabels: labels}
	// RWO claim: the old pod must release it before the new one starts.
	deploy.Spec.Strategy = appsv1.DeploymentStrategy{Type: appsv1.RecreateDeploymentStrategyType}
	deploy.Spec.Template = corev1.PodTemplateSpec{
		ObjectMeta: metav1.ObjectMeta{
			Labels: labels,
		},
		Spec: corev1.PodSpec{
			NodeSelector: p.NodeSelector,
			Containers:   []corev1.Container{brokerContainer(p)},
			Volumes: []corev1.Volume{
				{
					Name: p.ClaimName,
					VolumeSource: corev1.VolumeSource{
						PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
							ClaimName: p.ClaimName,
						},
					},
				},
			},
		},
	}
}

func brokerContainer(p Params) corev1.Container {
	c := corev1.Container{
		Name:  DefaultName,
		Image: p.Image,
		Ports: []corev1.ContainerPort{
			{Name: DefaultPortName, ContainerPort: p.Port, Protocol: corev1.ProtocolTCP},
		},
		Resources: p.Resources,
		VolumeMounts: []corev1.VolumeMount{
			{Name: p.ClaimName, MountPath: p.MountPath},
		},
		ReadinessProbe: &corev1.Probe{
			ProbeHandler: corev1.ProbeHandler{
				TCPSocket: &corev1.TCPSocketAction{
					Port: intstr.FromInt32(p.Port),
				},
			},
			InitialDelaySeconds: 10,
			PeriodSeconds:       5,
		},
	}
	// The image listens on 5672 and stores data under /var/lib/rabbitmq unless told otherwise.
	if p.Port != DefaultPort {
		c.Env = append(c.Env, corev1.EnvVar{Name: EnvNodePort, Value: strconv.Itoa(int(p.Port))})
	}
	if p.MountPath != DefaultMountPath {
		c.Env = append(c.Env, corev1.EnvVar{Name: EnvMnesiaBase, Value: mnesiaBase(p.MountPath)})
	}
	if p.CredentialsSecret != "" {
		c.Env = append(c.Env,
			secretEnv("RABBITMQ_DEFAULT_USER", p.CredentialsSecret, common.UsernameKey),
			secretEnv("RABBITMQ_DEFAULT_PASS", p.CredentialsSecret, common.PasswordKey),
		)
	}
	return c
}

func mnesiaBase(mountPath string) string {
	return path.Join(mountPath, "mnesia")
}

func secretEnv(name, secret, key string) corev1.EnvVar {
	return corev1.EnvVar{
		Name: name,
		ValueFrom: &corev1.EnvVarSource{
			SecretKeyRef: &corev1.SecretKeySelector{
				LocalObjectReference: corev1.LocalObjectReference{Name: secret},
				Key:                  key,
			},
		},
	}
}

// BuildClaim returns the PersistentVolumeClaim backing the broker data directory.
func BuildClaim(p Params, opts ClaimOptions) *corev1.PersistentVolumeClaim {
	p = p.WithDefaults()
	size := opts.Size
	if size.IsZero() {
		size = resource.MustParse(defaultClaimSize)
	}
	return &corev1.PersistentVolumeClaim{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "PersistentVolumeClaim"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      p.ClaimName,
			Namespace: p.Namespace,
			Labels:    Labels(p),
		},
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{
					corev1.ResourceStorage: size,
				},
			},
			StorageClassName: opts.StorageClassName,
		},
	}
}

// Objects returns the declaration in apply order: claim (when requested), Service, Deployment.
func Objects(p Params, opts ClaimOptions) []client.Object {
	var objs []client.Object
	if opts.Create {
		objs = append(objs, BuildClaim(p, opts))
	}
	return append(objs, BuildService(p), BuildDeployment(p))
}

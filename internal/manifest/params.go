// Package manifest builds, renders, parses, checks and applies the broker declaration:
// one Service and one single-replica Deployment whose pod mounts a persistent claim.
package manifest

import (
	"maps"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/mrrauch/queue-operator/internal/images"
)

const (
	DefaultName        = "queue"
	DefaultEnvironment = "production"
	DefaultPortName    = "amqp"
	DefaultClaimName   = "queuedb"
	DefaultMountPath   = "/var/lib/rabbitmq"

	DefaultPort int32 = 5672

	// Replicas is fixed: the broker keeps its state on one RWO claim and
	// uncoordinated copies would diverge.
	Replicas int32 = 1

	LabelApp = "app"
	LabelEnv = "env"
)

// Params carries every value the declaration is built from.
type Params struct {
	Name        string
	Namespace   string
	Environment string
	Image       string
	Port        int32
	ClaimName   string
	MountPath   string

	// CredentialsSecret, when set, injects RABBITMQ_DEFAULT_USER/PASS from that Secret.
	CredentialsSecret string

	Resources    corev1.ResourceRequirements
	NodeSelector map[string]string
}

// ClaimOptions controls whether the declaration also carries its PersistentVolumeClaim.
// By default the claim is expected to exist already.
type ClaimOptions struct {
	Create           bool
	Size             resource.Quantity
	StorageClassName *string
}

// DefaultParams returns the canonical declaration: queue/production on rabbitmq:3, port 5672, claim queuedb.
func DefaultParams() Params {
	return Params{}.WithDefaults()
}

// WithDefaults fills every empty field with its default.
func (p Params) WithDefaults() Params {
	if p.Name == "" {
		p.Name = DefaultName
	}
	if p.Environment == "" {
		p.Environment = DefaultEnvironment
	}
	p.Image = images.ImageOrDefault(p.Image, images.DefaultRabbitMQ)
	if p.Port == 0 {
		p.Port = DefaultPort
	}
	if p.ClaimName == "" {
		p.ClaimName = DefaultClaimName
	}
	if p.MountPath == "" {
		p.MountPath = DefaultMountPath
	}
	return p
}

// Labels returns the labels the Service selects on and the pod template carries.
func Labels(p Params) map[string]string {
	p = p.WithDefaults()
	return map[string]string{
		LabelApp: p.Name,
		LabelEnv: p.Environment,
	}
}

// mergeLabels overlays desired onto existing without dropping labels set by others.
func mergeLabels(existing, desired map[string]string) map[string]string {
	out := make(map[string]string, len(existing)+len(desired))
	maps.Copy(out, existing)
	maps.Copy(out, desired)
	return out
}

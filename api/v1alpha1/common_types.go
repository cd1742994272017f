package v1alpha1

import (
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// WorkloadTemplate contains the pod-level fields shared by broker workloads.
// Replica count is not part of it: a broker with a single data volume always runs one pod.
type WorkloadTemplate struct {
	// Image is the container image to use. If empty, the operator default is used.
	// +optional
	Image string `json:"image,omitempty"`

	// Resources defines compute resource requirements for the broker pod.
	// +optional
	Resources corev1.ResourceRequirements `json:"resources,omitempty"`

	// NodeSelector constrains scheduling to nodes matching these labels.
	// +optional
	NodeSelector map[string]string `json:"nodeSelector,omitempty"`
}

// StorageConfig defines the persistent volume claim backing the broker data directory.
type StorageConfig struct {
	// ClaimName is the PersistentVolumeClaim mounted into the pod.
	// +kubebuilder:default="queuedb"
	// +optional
	ClaimName string `json:"claimName,omitempty"`

	// MountPath is where the claim is mounted inside the broker container.
	// +kubebuilder:default="/var/lib/rabbitmq"
	// +optional
	MountPath string `json:"mountPath,omitempty"`

	// Create makes the operator own the claim. When false the claim must exist already.
	// +kubebuilder:default=false
	// +optional
	Create bool `json:"create,omitempty"`

	// Size is the requested storage size. Only used when Create is true.
	// +kubebuilder:default="10Gi"
	// +optional
	Size resource.Quantity `json:"size,omitempty"`

	// StorageClassName is the name of the StorageClass to use. Only used when Create is true.
	// +optional
	StorageClassName *string `json:"storageClassName,omitempty"`
}

// CredentialsConfig enables a generated broker user.
type CredentialsConfig struct {
	// SecretName is the Secret holding username and password keys.
	// The operator generates it if it does not exist.
	// +optional
	SecretName string `json:"secretName,omitempty"`
}

// ConditionType represents the type of a status condition.
type ConditionType string

const (
	// ConditionReady indicates the resource is fully operational.
	ConditionReady ConditionType = "Ready"

	// ConditionStorageReady indicates the data volume claim is bound.
	ConditionStorageReady ConditionType = "StorageReady"

	// ConditionDeploymentReady indicates the broker Deployment is available.
	ConditionDeploymentReady ConditionType = "DeploymentReady"
)

// CommonStatus contains status fields shared by all CRs.
type CommonStatus struct {
	// Conditions represent the latest available observations of the resource's state.
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`

	// ObservedGeneration is the most recent generation observed by the controller.
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`
}

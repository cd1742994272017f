package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// QueueSpec defines the desired state of the message broker.
type QueueSpec struct {
	WorkloadTemplate `json:",inline"`

	// Environment is the value of the env label shared by the Service selector and the pod.
	// +kubebuilder:default="production"
	// +optional
	Environment string `json:"environment,omitempty"`

	// Port is the AMQP port exposed by both the container and the Service.
	// +kubebuilder:default=5672
	// +kubebuilder:validation:Minimum=1
	// +kubebuilder:validation:Maximum=65535
	// +optional
	Port int32 `json:"port,omitempty"`

	// Storage defines the persistent data volume.
	// +optional
	Storage StorageConfig `json:"storage,omitempty"`

	// Credentials enables a generated default user instead of the loopback-only guest account.
	// +optional
	Credentials *CredentialsConfig `json:"credentials,omitempty"`
}

// QueueStatus defines the observed state of Queue.
type QueueStatus struct {
	CommonStatus `json:",inline"`

	// Endpoint is the in-cluster AMQP address of the Service.
	// +optional
	Endpoint string `json:"endpoint,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:printcolumn:name="Endpoint",type=string,JSONPath=`.status.endpoint`
// +kubebuilder:printcolumn:name="Ready",type=string,JSONPath=`.status.conditions[?(@.type=="Ready")].status`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`

// Queue is the Schema for the queues API.
type Queue struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   QueueSpec   `json:"spec,omitempty"`
	Status QueueStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// QueueList contains a list of Queue.
type QueueList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []Queue `json:"items"`
}

func init() {
	SchemeBuilder.Register(&Queue{}, &QueueList{})
}

package controller

import (
	"fmt"

	queuev1alpha1 "github.com/mrrauch/queue-operator/api/v1alpha1"
)

// credentialsSecretName returns the Secret that holds the broker user, or "" when credentials are off.
func credentialsSecretName(instance *queuev1alpha1.Queue) string {
	if instance.Spec.Credentials == nil {
		return ""
	}
	if instance.Spec.Credentials.SecretName != "" {
		return instance.Spec.Credentials.SecretName
	}
	return fmt.Sprintf("%s-credentials", instance.Name)
}

// amqpEndpoint is the in-cluster address clients dial.
func amqpEndpoint(name, namespace string, port int32) string {
	return fmt.Sprintf("amqp://%s.%s.svc:%d", name, namespace, port)
}

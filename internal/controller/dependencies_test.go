package controller

import (
	"testing"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	queuev1alpha1 "github.com/mrrauch/queue-operator/api/v1alpha1"
)

func TestCredentialsSecretName(t *testing.T) {
	instance := &queuev1alpha1.Queue{ObjectMeta: metav1.ObjectMeta{Name: "queue"}}
	if got := credentialsSecretName(instance); got != "" {
		t.Fatalf("expected no secret without credentials, got %s", got)
	}

	instance.Spec.Credentials = &queuev1alpha1.CredentialsConfig{}
	if got := credentialsSecretName(instance); got != "queue-credentials" {
		t.Fatalf("expected queue-credentials, got %s", got)
	}

	instance.Spec.Credentials.SecretName = "celery-broker"
	if got := credentialsSecretName(instance); got != "celery-broker" {
		t.Fatalf("expected celery-broker, got %s", got)
	}
}

func TestAMQPEndpoint(t *testing.T) {
	if got := amqpEndpoint("queue", "messaging", 5672); got != "amqp://queue.messaging.svc:5672" {
		t.Fatalf("expected amqp://queue.messaging.svc:5672, got %s", got)
	}
}

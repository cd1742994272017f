package common

import (
	"testing"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	queuev1alpha1 "github.com/mrrauch/queue-operator/api/v1alpha1"
)

func TestSetCondition_AddsNew(t *testing.T) {
	var conditions []metav1.Condition
	conditions = SetCondition(conditions, queuev1alpha1.ConditionReady, metav1.ConditionTrue, "AllGood", "everything is fine", 1)
	if len(conditions) != 1 {
		t.Fatalf("expected 1 condition, got %d", len(conditions))
	}
	if conditions[0].Type != "Ready" {
		t.Errorf("expected type Ready, got %s", conditions[0].Type)
	}
	if conditions[0].Status != metav1.ConditionTrue {
		t.Errorf("expected status True, got %s", conditions[0].Status)
	}
	if conditions[0].ObservedGeneration != 1 {
		t.Errorf("expected observedGeneration 1, got %d", conditions[0].ObservedGeneration)
	}
}

func TestSetCondition_UpdatesExisting(t *testing.T) {
	conditions := []metav1.Condition{
		{Type: "StorageReady", Status: metav1.ConditionFalse, Reason: "Pending", Message: "claim not bound"},
	}
	conditions = SetCondition(conditions, queuev1alpha1.ConditionStorageReady, metav1.ConditionTrue, "Bound", "claim bound", 2)
	if len(conditions) != 1 {
		t.Fatalf("expected 1 condition, got %d", len(conditions))
	}
	if conditions[0].Status != metav1.ConditionTrue {
		t.Errorf("expected status True, got %s", conditions[0].Status)
	}
	if conditions[0].Reason != "Bound" {
		t.Errorf("expected reason Bound, got %s", conditions[0].Reason)
	}
	if conditions[0].LastTransitionTime.IsZero() {
		t.Error("expected LastTransitionTime to be set on status change")
	}
}

func TestSetCondition_KeepsTransitionTimeWhenStatusUnchanged(t *testing.T) {
	var conditions []metav1.Condition
	conditions = SetCondition(conditions, queuev1alpha1.ConditionDeploymentReady, metav1.ConditionFalse, "Progressing", "", 1)
	first := conditions[0].LastTransitionTime
	conditions = SetCondition(conditions, queuev1alpha1.ConditionDeploymentReady, metav1.ConditionFalse, "Progressing", "still waiting", 2)
	if !conditions[0].LastTransitionTime.Equal(&first) {
		t.Error("expected LastTransitionTime to be preserved")
	}
	if conditions[0].Message != "still waiting" {
		t.Errorf("expected message to be updated, got %q", conditions[0].Message)
	}
}

func TestIsReady(t *testing.T) {
	conditions := []metav1.Condition{
		{Type: "Ready", Status: metav1.ConditionTrue, Reason: "AllGood"},
		{Type: "StorageReady", Status: metav1.ConditionFalse, Reason: "Pending"},
	}
	if !IsReady(conditions) {
		t.Error("expected IsReady to return true")
	}
	if IsConditionTrue(conditions, queuev1alpha1.ConditionStorageReady) {
		t.Error("expected StorageReady to be false")
	}
	if IsReady(nil) {
		t.Error("expected IsReady to return false for nil conditions")
	}
}

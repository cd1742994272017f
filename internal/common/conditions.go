package common

import (
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	queuev1alpha1 "github.com/mrrauch/queue-operator/api/v1alpha1"
)

// SetCondition sets or updates a condition in the given slice.
// LastTransitionTime only moves when the status flips.
func SetCondition(conditions []metav1.Condition, condType queuev1alpha1.ConditionType, status metav1.ConditionStatus, reason, message string, observedGeneration int64) []metav1.Condition {
	now := metav1.NewTime(time.Now())
	if c := FindCondition(conditions, condType); c != nil {
		if c.Status != status {
			c.LastTransitionTime = now
		}
		c.Status = status
		c.Reason = reason
		c.Message = message
		c.ObservedGeneration = observedGeneration
		return conditions
	}
	return append(conditions, metav1.Condition{
		Type:               string(condType),
		Status:             status,
		Reason:             reason,
		Message:            message,
		ObservedGeneration: observedGeneration,
		LastTransitionTime: now,
	})
}

// FindCondition returns a pointer into conditions for condType, or nil.
func FindCondition(conditions []metav1.Condition, condType queuev1alpha1.ConditionType) *metav1.Condition {
	for i := range conditions {
		if conditions[i].Type == string(condType) {
			return &conditions[i]
		}
	}
	return nil
}

// IsConditionTrue reports whether condType is present with status True.
func IsConditionTrue(conditions []metav1.Condition, condType queuev1alpha1.ConditionType) bool {
	c := FindCondition(conditions, condType)
	return c != nil && c.Status == metav1.ConditionTrue
}

// IsReady returns true if the "Ready" condition is True.
func IsReady(conditions []metav1.Condition) bool {
	return IsConditionTrue(conditions, queuev1alpha1.ConditionReady)
}

package controller

import (
	"context"
	"fmt"
	"maps"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/log"

	queuev1alpha1 "github.com/mrrauch/queue-operator/api/v1alpha1"
	"github.com/mrrauch/queue-operator/internal/common"
	"github.com/mrrauch/queue-operator/internal/images"
	"github.com/mrrauch/queue-operator/internal/manifest"
)

const defaultRequeueAfter = 30 * time.Second

// QueueReconciler reconciles a Queue object into its Service, Deployment and,
// optionally, its claim and credentials Secret.
type QueueReconciler struct {
	client.Client
	Scheme *runtime.Scheme

	// DefaultImage is used when a Queue does not set spec.image.
	DefaultImage string
	// RequeueAfter is how soon a Queue that is not ready is revisited.
	RequeueAfter time.Duration
}

// Reconcile handles the reconciliation loop for Queue resources.
func (r *QueueReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	logger := log.FromContext(ctx)

	instance := &queuev1alpha1.Queue{}
	if err := r.Get(ctx, req.NamespacedName, instance); err != nil {
		return ctrl.Result{}, client.IgnoreNotFound(err)
	}

	// Handle deletion
	if !instance.DeletionTimestamp.IsZero() {
		forgetQueue(instance.Namespace, instance.Name)
		if common.RemoveFinalizer(instance, common.FinalizerName) {
			if err := r.Update(ctx, instance); err != nil {
				return ctrl.Result{}, err
			}
		}
		return ctrl.Result{}, nil
	}

	// Ensure finalizer
	if common.AddFinalizer(instance, common.FinalizerName) {
		if err := r.Update(ctx, instance); err != nil {
			return ctrl.Result{}, err
		}
		return ctrl.Result{Requeue: true}, nil
	}

	instance.Status.Conditions = common.SetCondition(
		instance.Status.Conditions, queuev1alpha1.ConditionReady,
		metav1.ConditionFalse, "Reconciling", "Reconciliation in progress",
		instance.Generation,
	)

	params := r.paramsFor(instance)

	// Ensure credentials secret
	if params.CredentialsSecret != "" {
		if err := common.EnsureCredentialsSecret(ctx, r.Client, params.CredentialsSecret, instance.Namespace, instance); err != nil {
			return ctrl.Result{}, fmt.Errorf("ensure credentials secret: %w", err)
		}
	}

	// Ensure claim
	if instance.Spec.Storage.Create {
		if err := r.ensureClaim(ctx, instance, params); err != nil {
			return ctrl.Result{}, fmt.Errorf("ensure claim: %w", err)
		}
	}
	storageReady, err := r.checkClaim(ctx, instance, params)
	if err != nil {
		return ctrl.Result{}, err
	}

	// The Deployment selector is immutable, so a label change cannot be rolled out in place.
	// Leave the Service and Deployment alone to keep traffic on the running broker.
	if selector, err := r.deploymentSelector(ctx, instance); err != nil {
		return ctrl.Result{}, err
	} else if selector != nil && !maps.Equal(selector, manifest.Labels(params)) {
		logger.Info("deployment selector no longer matches queue labels", "selector", selector, "labels", manifest.Labels(params))
		instance.Status.Conditions = common.SetCondition(
			instance.Status.Conditions, queuev1alpha1.ConditionDeploymentReady,
			metav1.ConditionFalse, "SelectorImmutable",
			fmt.Sprintf("Deployment %s selects %v but the Queue wants %v; delete the Deployment to recreate it", instance.Name, selector, manifest.Labels(params)),
			instance.Generation,
		)
		recordReady(instance.Namespace, instance.Name, false)
		instance.Status.ObservedGeneration = instance.Generation
		if err := r.Status().Update(ctx, instance); err != nil {
			return ctrl.Result{}, err
		}
		return ctrl.Result{}, nil
	}

	if err := r.ensureService(ctx, instance, params); err != nil {
		return ctrl.Result{}, fmt.Errorf("ensure service: %w", err)
	}

	if err := r.ensureDeployment(ctx, instance, params); err != nil {
		return ctrl.Result{}, fmt.Errorf("ensure deployment: %w", err)
	}

	deployReady, err := r.checkDeployment(ctx, instance)
	if err != nil {
		return ctrl.Result{}, err
	}

	ready := storageReady && deployReady
	if ready {
		instance.Status.Conditions = common.SetCondition(
			instance.Status.Conditions, queuev1alpha1.ConditionReady,
			metav1.ConditionTrue, "QueueReady", "Broker is ready",
			instance.Generation,
		)
	}
	recordReady(instance.Namespace, instance.Name, ready)

	instance.Status.Endpoint = amqpEndpoint(instance.Name, instance.Namespace, params.Port)
	instance.Status.ObservedGeneration = instance.Generation
	if err := r.Status().Update(ctx, instance); err != nil {
		logger.Error(err, "failed to update status")
		return ctrl.Result{}, err
	}

	if !ready {
		logger.V(1).Info("queue not ready yet", "storageReady", storageReady, "deploymentReady", deployReady)
		return ctrl.Result{RequeueAfter: r.requeueAfter()}, nil
	}
	return ctrl.Result{}, nil
}

func (r *QueueReconciler) paramsFor(instance *queuev1alpha1.Queue) manifest.Params {
	defaultImage := images.ImageOrDefault(r.DefaultImage, images.DefaultRabbitMQ)
	return manifest.Params{
		Name:              instance.Name,
		Namespace:         instance.Namespace,
		Environment:       instance.Spec.Environment,
		Image:             images.ImageOrDefault(instance.Spec.Image, defaultImage),
		Port:              instance.Spec.Port,
		ClaimName:         instance.Spec.Storage.ClaimName,
		MountPath:         instance.Spec.Storage.MountPath,
		CredentialsSecret: credentialsSecretName(instance),
		Resources:         instance.Spec.Resources,
		NodeSelector:      instance.Spec.NodeSelector,
	}.WithDefaults()
}

func (r *QueueReconciler) requeueAfter() time.Duration {
	if r.RequeueAfter > 0 {
		return r.RequeueAfter
	}
	return defaultRequeueAfter
}

// ensureClaim creates the claim once. Claims are not updated afterwards.
func (r *QueueReconciler) ensureClaim(ctx context.Context, instance *queuev1alpha1.Queue, params manifest.Params) error {
	existing := &corev1.PersistentVolumeClaim{}
	err := r.Get(ctx, types.NamespacedName{Name: params.ClaimName, Namespace: instance.Namespace}, existing)
	if err == nil {
		return nil
	}
	if !apierrors.IsNotFound(err) {
		return err
	}

	claim := manifest.BuildClaim(params, manifest.ClaimOptions{
		Create:           true,
		Size:             instance.Spec.Storage.Size,
		StorageClassName: instance.Spec.Storage.StorageClassName,
	})
	if err := controllerutil.SetOwnerReference(instance, claim, r.Scheme); err != nil {
		return err
	}
	log.FromContext(ctx).Info("creating claim", "claim", claim.Name)
	return r.Create(ctx, claim)
}

func (r *QueueReconciler) checkClaim(ctx context.Context, instance *queuev1alpha1.Queue, params manifest.Params) (bool, error) {
	claim := &corev1.PersistentVolumeClaim{}
	err := r.Get(ctx, types.NamespacedName{Name: params.ClaimName, Namespace: instance.Namespace}, claim)
	switch {
	case apierrors.IsNotFound(err):
		instance.Status.Conditions = common.SetCondition(
			instance.Status.Conditions, queuev1alpha1.ConditionStorageReady,
			metav1.ConditionFalse, "ClaimMissing", fmt.Sprintf("PersistentVolumeClaim %s does not exist", params.ClaimName),
			instance.Generation,
		)
		return false, nil
	case err != nil:
		return false, err
	case claim.Status.Phase != corev1.ClaimBound:
		instance.Status.Conditions = common.SetCondition(
			instance.Status.Conditions, queuev1alpha1.ConditionStorageReady,
			metav1.ConditionFalse, "ClaimPending", fmt.Sprintf("PersistentVolumeClaim %s is not bound", params.ClaimName),
			instance.Generation,
		)
		return false, nil
	}
	instance.Status.Conditions = common.SetCondition(
		instance.Status.Conditions, queuev1alpha1.ConditionStorageReady,
		metav1.ConditionTrue, "ClaimBound", fmt.Sprintf("PersistentVolumeClaim %s is bound", params.ClaimName),
		instance.Generation,
	)
	return true, nil
}

func (r *QueueReconciler) ensureService(ctx context.Context, instance *queuev1alpha1.Queue, params manifest.Params) error {
	svc := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      instance.Name,
			Namespace: instance.Namespace,
		},
	}
	_, err := controllerutil.CreateOrUpdate(ctx, r.Client, svc, func() error {
		manifest.MutateService(svc, params)
		return controllerutil.SetOwnerReference(instance, svc, r.Scheme)
	})
	return err
}

func (r *QueueReconciler) ensureDeployment(ctx context.Context, instance *queuev1alpha1.Queue, params manifest.Params) error {
	deploy := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:      instance.Name,
			Namespace: instance.Namespace,
		},
	}
	_, err := controllerutil.CreateOrUpdate(ctx, r.Client, deploy, func() error {
		manifest.MutateDeployment(deploy, params)
		return controllerutil.SetOwnerReference(instance, deploy, r.Scheme)
	})
	return err
}

// deploymentSelector returns the match labels of the existing Deployment, or nil if there is none.
func (r *QueueReconciler) deploymentSelector(ctx context.Context, instance *queuev1alpha1.Queue) (map[string]string, error) {
	deploy := &appsv1.Deployment{}
	err := r.Get(ctx, types.NamespacedName{Name: instance.Name, Namespace: instance.Namespace}, deploy)
	if apierrors.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if deploy.Spec.Selector == nil || len(deploy.Spec.Selector.MatchLabels) == 0 {
		return nil, nil
	}
	return deploy.Spec.Selector.MatchLabels, nil
}

func (r *QueueReconciler) checkDeployment(ctx context.Context, instance *queuev1alpha1.Queue) (bool, error) {
	deploy := &appsv1.Deployment{}
	if err := r.Get(ctx, types.NamespacedName{Name: instance.Name, Namespace: instance.Namespace}, deploy); err != nil {
		return false, err
	}

	if deploy.Status.ObservedGeneration < deploy.Generation {
		instance.Status.Conditions = common.SetCondition(
			instance.Status.Conditions, queuev1alpha1.ConditionDeploymentReady,
			metav1.ConditionFalse, "RolloutPending",
			fmt.Sprintf("Deployment generation %d not yet observed", deploy.Generation),
			instance.Generation,
		)
		return false, nil
	}
	if deploy.Status.ReadyReplicas == manifest.Replicas && deploy.Status.Replicas == manifest.Replicas {
		instance.Status.Conditions = common.SetCondition(
			instance.Status.Conditions, queuev1alpha1.ConditionDeploymentReady,
			metav1.ConditionTrue, "DeploymentReady", "Broker pod is ready",
			instance.Generation,
		)
		return true, nil
	}
	instance.Status.Conditions = common.SetCondition(
		instance.Status.Conditions, queuev1alpha1.ConditionDeploymentReady,
		metav1.ConditionFalse, "DeploymentProgressing",
		fmt.Sprintf("%d/%d replicas ready", deploy.Status.ReadyReplicas, manifest.Replicas),
		instance.Generation,
	)
	return false, nil
}

// SetupWithManager sets up the controller with the Manager.
func (r *QueueReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&queuev1alpha1.Queue{}).
		Owns(&appsv1.Deployment{}).
		Owns(&corev1.Service{}).
		Owns(&corev1.Secret{}).
		Owns(&corev1.PersistentVolumeClaim{}).
		Complete(r)
}

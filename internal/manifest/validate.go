package manifest

import (
	"fmt"
	"maps"
	"path"
	"strconv"
	"strings"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/apimachinery/pkg/util/validation"
	"k8s.io/apimachinery/pkg/util/validation/field"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

var supportedKinds = []string{"Service", "Deployment", "PersistentVolumeClaim"}

// Validate checks that objs form a consistent broker declaration for p:
// exactly one Service and one Deployment, selectors that resolve to the pod
// template, a single replica, matching ports, and a claim volume mounted at
// the data directory. A PersistentVolumeClaim may accompany them.
func Validate(objs []client.Object, p Params) field.ErrorList {
	p = p.WithDefaults()
	root := field.NewPath("manifest")

	var (
		allErrs  field.ErrorList
		services []*corev1.Service
		deploys  []*appsv1.Deployment
		claims   []*corev1.PersistentVolumeClaim
	)
	for i, obj := range objs {
		switch o := obj.(type) {
		case *corev1.Service:
			services = append(services, o)
		case *appsv1.Deployment:
			deploys = append(deploys, o)
		case *corev1.PersistentVolumeClaim:
			claims = append(claims, o)
		default:
			allErrs = append(allErrs, field.NotSupported(root.Index(i).Child("kind"), kindOf(obj), supportedKinds))
		}
	}

	allErrs = append(allErrs, expectOne(root.Child("Service"), len(services))...)
	allErrs = append(allErrs, expectOne(root.Child("Deployment"), len(deploys))...)
	if len(claims) > 1 {
		allErrs = append(allErrs, field.TooMany(root.Child("PersistentVolumeClaim"), len(claims), 1))
	}
	for _, claim := range claims {
		if claim.Name != p.ClaimName {
			allErrs = append(allErrs, field.Invalid(field.NewPath("PersistentVolumeClaim").Key(claim.Name).Child("metadata", "name"),
				claim.Name, fmt.Sprintf("must be %q, the claim the Deployment mounts", p.ClaimName)))
		}
	}
	if len(services) != 1 || len(deploys) != 1 {
		return allErrs
	}

	svc, deploy := services[0], deploys[0]
	allErrs = append(allErrs, validateService(svc, p)...)
	allErrs = append(allErrs, validateDeployment(deploy, p)...)
	allErrs = append(allErrs, validateSelection(svc, deploy)...)
	allErrs = append(allErrs, validatePorts(svc, deploy, p)...)
	allErrs = append(allErrs, validateVolumes(deploy, p)...)
	return allErrs
}

func expectOne(path *field.Path, n int) field.ErrorList {
	switch {
	case n == 0:
		return field.ErrorList{field.Required(path, "exactly one is required")}
	case n > 1:
		return field.ErrorList{field.TooMany(path, n, 1)}
	}
	return nil
}

func kindOf(obj client.Object) string {
	if kind := obj.GetObjectKind().GroupVersionKind().Kind; kind != "" {
		return kind
	}
	return fmt.Sprintf("%T", obj)
}

func servicePath(svc *corev1.Service) *field.Path {
	return field.NewPath("Service").Key(svc.Name)
}

func deploymentPath(deploy *appsv1.Deployment) *field.Path {
	return field.NewPath("Deployment").Key(deploy.Name)
}

func validateService(svc *corev1.Service, p Params) field.ErrorList {
	var allErrs field.ErrorList
	path := servicePath(svc)

	if msgs := validation.IsDNS1035Label(svc.Name); len(msgs) > 0 {
		allErrs = append(allErrs, field.Invalid(path.Child("metadata", "name"), svc.Name, strings.Join(msgs, "; ")))
	} else if svc.Name != p.Name {
		allErrs = append(allErrs, field.Invalid(path.Child("metadata", "name"), svc.Name, fmt.Sprintf("must be %q", p.Name)))
	}

	selectorPath := path.Child("spec", "selector")
	switch {
	case len(svc.Spec.Selector) == 0:
		allErrs = append(allErrs, field.Required(selectorPath, "a Service without a selector never gets endpoints"))
	case !maps.Equal(svc.Spec.Selector, Labels(p)):
		allErrs = append(allErrs, field.Invalid(selectorPath, svc.Spec.Selector, fmt.Sprintf("must be %v", Labels(p))))
	}
	return allErrs
}

func validateDeployment(deploy *appsv1.Deployment, p Params) field.ErrorList {
	var allErrs field.ErrorList
	path := deploymentPath(deploy)

	if deploy.Name != p.Name {
		allErrs = append(allErrs, field.Invalid(path.Child("metadata", "name"), deploy.Name, fmt.Sprintf("must be %q", p.Name)))
	}

	replicasPath := path.Child("spec", "replicas")
	switch {
	case deploy.Spec.Replicas == nil:
		allErrs = append(allErrs, field.Required(replicasPath, fmt.Sprintf("must be set to %d", Replicas)))
	case *deploy.Spec.Replicas != Replicas:
		allErrs = append(allErrs, field.Invalid(replicasPath, *deploy.Spec.Replicas, "the broker is stateful and must run a single replica"))
	}

	selectorPath := path.Child("spec", "selector")
	if deploy.Spec.Selector == nil {
		return append(allErrs, field.Required(selectorPath, ""))
	}
	selector, err := metav1.LabelSelectorAsSelector(deploy.Spec.Selector)
	if err != nil {
		return append(allErrs, field.Invalid(selectorPath, deploy.Spec.Selector, err.Error()))
	}
	if selector.Empty() {
		allErrs = append(allErrs, field.Required(selectorPath, "an empty selector matches every pod"))
	} else if !selector.Matches(labels.Set(deploy.Spec.Template.Labels)) {
		allErrs = append(allErrs, field.Invalid(path.Child("spec", "template", "metadata", "labels"),
			deploy.Spec.Template.Labels, "must match the Deployment selector"))
	}
	return allErrs
}

// validateSelection checks that the Service resolves to the Deployment's pods.
func validateSelection(svc *corev1.Service, deploy *appsv1.Deployment) field.ErrorList {
	if len(svc.Spec.Selector) == 0 {
		return nil
	}
	if labels.SelectorFromSet(svc.Spec.Selector).Matches(labels.Set(deploy.Spec.Template.Labels)) {
		return nil
	}
	return field.ErrorList{field.Invalid(servicePath(svc).Child("spec", "selector"), svc.Spec.Selector,
		fmt.Sprintf("does not select the pod template labels %v of Deployment %s", deploy.Spec.Template.Labels, deploy.Name))}
}

func validatePorts(svc *corev1.Service, deploy *appsv1.Deployment, p Params) field.ErrorList {
	var allErrs field.ErrorList
	svcPortsPath := servicePath(svc).Child("spec", "ports")

	container, idx := brokerContainerFor(deploy, p)
	containersPath := deploymentPath(deploy).Child("spec", "template", "spec", "containers")
	if container == nil {
		allErrs = append(allErrs, field.Required(containersPath, fmt.Sprintf("a container must expose port %d", p.Port)))
	} else if listen := envValue(container, EnvNodePort, strconv.Itoa(int(DefaultPort))); listen != strconv.Itoa(int(p.Port)) {
		allErrs = append(allErrs, field.Invalid(containersPath.Index(idx).Child("env").Key(EnvNodePort), listen,
			fmt.Sprintf("the broker must listen on the exposed port %d", p.Port)))
	}

	svcPort, portIdx := servicePortFor(svc, p.Port)
	if svcPort == nil {
		return append(allErrs, field.Required(svcPortsPath, fmt.Sprintf("a port %d is required", p.Port)))
	}
	if svcPort.Protocol != "" && svcPort.Protocol != corev1.ProtocolTCP {
		allErrs = append(allErrs, field.NotSupported(svcPortsPath.Index(portIdx).Child("protocol"), svcPort.Protocol, []corev1.Protocol{corev1.ProtocolTCP}))
	}

	targetPath := svcPortsPath.Index(portIdx).Child("targetPort")
	target := svcPort.TargetPort
	switch {
	case target.Type == intstr.Int && target.IntVal == 0:
		// unset targetPort defaults to the Service port
	case target.Type == intstr.Int && target.IntVal != p.Port:
		allErrs = append(allErrs, field.Invalid(targetPath, target.IntVal, fmt.Sprintf("must be %d", p.Port)))
	case target.Type == intstr.String && container != nil:
		if port := namedPort(container, target.StrVal); port == nil || port.ContainerPort != p.Port {
			allErrs = append(allErrs, field.Invalid(targetPath, target.StrVal,
				fmt.Sprintf("must name container port %d of %s", p.Port, containersPath.Index(idx))))
		}
	}
	return allErrs
}

func validateVolumes(deploy *appsv1.Deployment, p Params) field.ErrorList {
	var allErrs field.ErrorList
	podPath := deploymentPath(deploy).Child("spec", "template", "spec")
	pod := deploy.Spec.Template.Spec

	volumes := make(map[string]corev1.Volume, len(pod.Volumes))
	claimVolume := ""
	for i, v := range pod.Volumes {
		volumes[v.Name] = v
		if v.PersistentVolumeClaim == nil {
			continue
		}
		if v.PersistentVolumeClaim.ClaimName == p.ClaimName {
			claimVolume = v.Name
		} else {
			allErrs = append(allErrs, field.Invalid(podPath.Child("volumes").Index(i).Child("persistentVolumeClaim", "claimName"),
				v.PersistentVolumeClaim.ClaimName, fmt.Sprintf("must be %q", p.ClaimName)))
		}
	}

	for ci, c := range pod.Containers {
		for mi, m := range c.VolumeMounts {
			if _, ok := volumes[m.Name]; !ok {
				allErrs = append(allErrs, field.NotFound(podPath.Child("containers").Index(ci).Child("volumeMounts").Index(mi).Child("name"), m.Name))
			}
		}
	}

	if claimVolume == "" {
		return append(allErrs, field.Required(podPath.Child("volumes"), fmt.Sprintf("a volume backed by claim %q is required", p.ClaimName)))
	}

	container, idx := brokerContainerFor(deploy, p)
	if container == nil {
		return allErrs
	}
	if base := envValue(container, EnvMnesiaBase, mnesiaBase(DefaultMountPath)); !within(base, p.MountPath) {
		allErrs = append(allErrs, field.Invalid(podPath.Child("containers").Index(idx).Child("env").Key(EnvMnesiaBase), base,
			fmt.Sprintf("the broker data directory must be under the claim mount %s", p.MountPath)))
	}
	for _, m := range container.VolumeMounts {
		if m.Name == claimVolume && m.MountPath == p.MountPath {
			return allErrs
		}
	}
	return append(allErrs, field.Required(podPath.Child("containers").Index(idx).Child("volumeMounts"),
		fmt.Sprintf("volume %q must be mounted at %s", claimVolume, p.MountPath)))
}

// brokerContainerFor returns the container exposing the broker port.
func brokerContainerFor(deploy *appsv1.Deployment, p Params) (*corev1.Container, int) {
	containers := deploy.Spec.Template.Spec.Containers
	for i := range containers {
		for _, port := range containers[i].Ports {
			if port.ContainerPort == p.Port {
				return &containers[i], i
			}
		}
	}
	return nil, -1
}

func servicePortFor(svc *corev1.Service, port int32) (*corev1.ServicePort, int) {
	for i := range svc.Spec.Ports {
		if svc.Spec.Ports[i].Port == port {
			return &svc.Spec.Ports[i], i
		}
	}
	return nil, -1
}

// envValue returns the literal value of name in c's env, or def when unset.
func envValue(c *corev1.Container, name, def string) string {
	for _, e := range c.Env {
		if e.Name == name {
			return e.Value
		}
	}
	return def
}

func within(p, dir string) bool {
	p, dir = path.Clean(p), path.Clean(dir)
	return p == dir || strings.HasPrefix(p, dir+"/")
}

func namedPort(c *corev1.Container, name string) *corev1.ContainerPort {
	for i := range c.Ports {
		if c.Ports[i].Name == name {
			return &c.Ports[i]
		}
	}
	return nil
}

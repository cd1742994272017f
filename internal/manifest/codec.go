package manifest

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/serializer"
	utilyaml "k8s.io/apimachinery/pkg/util/yaml"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/apiutil"
	"sigs.k8s.io/yaml"

	"github.com/mrrauch/queue-operator/internal/common"
)

var (
	scheme  = common.SetupScheme()
	decoder = serializer.NewCodecFactory(scheme).UniversalDeserializer()
)

// fields the API server owns; they only add noise to a declaration.
var serverFields = [][]string{
	{"status"},
	{"metadata", "creationTimestamp"},
	{"spec", "template", "metadata", "creationTimestamp"},
}

// Render writes objs as a multi-document YAML stream.
func Render(w io.Writer, objs ...client.Object) error {
	for i, obj := range objs {
		data, err := marshal(obj)
		if err != nil {
			return err
		}
		if i > 0 {
			if _, err := io.WriteString(w, "---\n"); err != nil {
				return err
			}
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	return nil
}

func marshal(in client.Object) ([]byte, error) {
	obj := in.DeepCopyObject()
	if obj.GetObjectKind().GroupVersionKind().Empty() {
		gvk, err := apiutil.GVKForObject(obj, scheme)
		if err != nil {
			return nil, errors.Wrapf(err, "resolve kind of %T", obj)
		}
		obj.GetObjectKind().SetGroupVersionKind(gvk)
	}

	content, err := runtime.DefaultUnstructuredConverter.ToUnstructured(obj)
	if err != nil {
		return nil, errors.Wrapf(err, "convert %T", obj)
	}
	for _, f := range serverFields {
		unstructured.RemoveNestedField(content, f...)
	}
	data, err := yaml.Marshal(content)
	if err != nil {
		return nil, errors.Wrapf(err, "marshal %T", obj)
	}
	return data, nil
}

// Parse decodes a multi-document YAML or JSON stream into typed Kubernetes objects.
// Empty and comment-only documents are skipped; unknown kinds are an error.
func Parse(r io.Reader) ([]client.Object, error) {
	reader := utilyaml.NewYAMLReader(bufio.NewReader(r))
	var objs []client.Object
	for i := 0; ; i++ {
		doc, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read document %d", i)
		}

		jsonDoc, err := yaml.YAMLToJSON(doc)
		if err != nil {
			return nil, errors.Wrapf(err, "document %d is not valid YAML", i)
		}
		if isEmptyDocument(jsonDoc) {
			continue
		}

		obj, _, err := decoder.Decode(jsonDoc, nil, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "decode document %d", i)
		}
		co, ok := obj.(client.Object)
		if !ok {
			return nil, fmt.Errorf("document %d: %T has no object metadata", i, obj)
		}
		objs = append(objs, co)
	}
	return objs, nil
}

func isEmptyDocument(jsonDoc []byte) bool {
	trimmed := bytes.TrimSpace(jsonDoc)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("{}"))
}

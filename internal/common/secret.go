package common

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
)

// Keys of a broker credentials Secret.
const (
	UsernameKey = "username"
	PasswordKey = "password"
)

// credentialLengths maps each credentials key to its generated length.
var credentialLengths = map[string]int{UsernameKey: 16, PasswordKey: 32}

// GeneratePassword returns a random hex string of the given length.
func GeneratePassword(length int) (string, error) {
	b := make([]byte, (length+1)/2)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b)[:length], nil
}

// EnsureSecret creates a Secret with generated random values for each key if it doesn't exist.
// The keys map specifies key name -> desired value length.
// An existing Secret is never rewritten, so clients keep working across reconciles.
func EnsureSecret(ctx context.Context, c client.Client, name, namespace string, keys map[string]int, owner metav1.Object) error {
	existing := &corev1.Secret{}
	err := c.Get(ctx, types.NamespacedName{Name: name, Namespace: namespace}, existing)
	if err == nil {
		return nil
	}
	if !errors.IsNotFound(err) {
		return err
	}

	data := make(map[string][]byte, len(keys))
	for k, length := range keys {
		value, genErr := GeneratePassword(length)
		if genErr != nil {
			return fmt.Errorf("generate %s: %w", k, genErr)
		}
		data[k] = []byte(value)
	}

	secret := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
		},
		Type: corev1.SecretTypeOpaque,
		Data: data,
	}

	if owner != nil {
		if err := controllerutil.SetOwnerReference(owner, secret, c.Scheme()); err != nil {
			return err
		}
	}

	return c.Create(ctx, secret)
}

// EnsureCredentialsSecret creates the broker user Secret holding UsernameKey and PasswordKey.
func EnsureCredentialsSecret(ctx context.Context, c client.Client, name, namespace string, owner metav1.Object) error {
	return EnsureSecret(ctx, c, name, namespace, credentialLengths, owner)
}

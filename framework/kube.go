package framework

import (
	"encoding/base64"
	"fmt"

	"github.com/redhat/perf-tests-reporter/framework/store"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// NewKubeClient builds a client from a project's cluster settings, in order:
// base64 kubeconfig, kubeconfig path, server and token. Without any of them it
// falls back to the in-cluster config and then to ~/.kube/config.
func NewKubeClient(cfg *store.K8sConfig) (kubernetes.Interface, error) {
	restConfig, err := restConfigFor(cfg)
	if err != nil {
		return nil, err
	}
	client, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create kubernetes client: %v", ErrClusterConnection, err)
	}
	return client, nil
}

func restConfigFor(cfg *store.K8sConfig) (*rest.Config, error) {
	if cfg != nil {
		switch {
		case cfg.KubeconfigBase64 != "":
			raw, err := base64.StdEncoding.DecodeString(cfg.KubeconfigBase64)
			if err != nil {
				return nil, fmt.Errorf("%w: kubeconfig is not valid base64: %v", ErrClusterConnection, err)
			}
			rc, err := clientcmd.RESTConfigFromKubeConfig(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrClusterConnection, err)
			}
			return rc, nil
		case cfg.KubeconfigPath != "":
			rc, err := clientcmd.BuildConfigFromFlags("", cfg.KubeconfigPath)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrClusterConnection, err)
			}
			return rc, nil
		case cfg.Server != "" && cfg.Token != "":
			return &rest.Config{
				Host:        cfg.Server,
				BearerToken: cfg.Token,
				TLSClientConfig: rest.TLSClientConfig{
					Insecure: cfg.InsecureSkipVerify,
				},
			}, nil
		}
	}

	rc, err := rest.InClusterConfig()
	if err == nil {
		return rc, nil
	}
	rc, err = clientcmd.BuildConfigFromFlags("", clientcmd.RecommendedHomeFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoKubernetesConfig, err)
	}
	return rc, nil
}

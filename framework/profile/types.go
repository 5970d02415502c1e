package profile

// Profile describes a project: the system under test, the model that writes
// its reports and where its evidence comes from
type Profile struct {
	// Name is the unique identifier for this project
	Name string `json:"name"`

	// Description provides human-readable details about the project
	Description string `json:"description,omitempty"`

	// Version of the system under test, quoted in report metadata
	Version string `json:"version,omitempty"`

	// LLM selects the model backend
	LLM LLMConfig `json:"llm"`

	// Grafana lists the dashboards sources used for snapshot export
	Grafana []GrafanaSource `json:"grafana,omitempty"`

	// Kubernetes describes the cluster the system runs in (optional)
	Kubernetes *KubernetesConfig `json:"kubernetes,omitempty"`
}

// LLMConfig selects a model backend
type LLMConfig struct {
	// Type is the backend tag: ollama, gigachat, openai, gemini or dummy
	Type string `json:"type"`

	// Model name; empty uses the backend default
	Model string `json:"model,omitempty"`

	// APIKey is the backend credential (GigaChat authorization key, OpenAI or Gemini key)
	APIKey string `json:"apiKey,omitempty"`

	// BaseURL overrides the backend endpoint
	BaseURL string `json:"baseURL,omitempty"`
}

// GrafanaSource is one Grafana instance
type GrafanaSource struct {
	Name  string `json:"name"`
	URL   string `json:"url"`
	Token string `json:"token,omitempty"`
}

// KubernetesConfig describes how to reach the cluster. Leave everything
// empty to use the in-cluster config or ~/.kube/config.
type KubernetesConfig struct {
	KubeconfigPath     string `json:"kubeconfigPath,omitempty"`
	KubeconfigBase64   string `json:"kubeconfigBase64,omitempty"`
	Server             string `json:"server,omitempty"`
	Token              string `json:"token,omitempty"`
	InsecureSkipVerify bool   `json:"insecureSkipVerify,omitempty"`

	// Namespace and LabelSelector scope pod collection
	Namespace     string `json:"namespace,omitempty"`
	LabelSelector string `json:"labelSelector,omitempty"`
}

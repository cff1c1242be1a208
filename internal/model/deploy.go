package model

import "encoding/json"

// DeployMap keys deploys by their deploy hash. Deploy bodies are kept as the
// raw JSON returned by the node; nothing downstream interprets them, and the
// hash used as the key is the deploy's identity.
type DeployMap map[string]json.RawMessage

package batch

import (
	"encoding/json"
	"os"

	"github.com/altruan-tools/pulpopicker/internal/wmsclient"
	"github.com/altruan-tools/pulpopicker/pkg/model"
)

// LoadSkusToBatchRules reads the operator-maintained special-SKU batching
// file (a JSON object keyed by SKU, see internal/config.RunConfig.
// SkusToBatchPath) mapping each SKU to the product ID it resolves to and
// the quantity above which a single order for it earns its own palette
// pick rather than joining the regular batch. A missing or unparsable
// file is reported as a *wmsclient.ConfigError so a caller can degrade to
// the default empty rule set rather than aborting the run.
func LoadSkusToBatchRules(path string) (model.SkusToBatchRules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &wmsclient.ConfigError{Field: "run.skus_to_batch_path"}
	}
	var rules model.SkusToBatchRules
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, &wmsclient.ConfigError{Field: "run.skus_to_batch_path"}
	}
	return rules, nil
}

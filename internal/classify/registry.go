package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fluxsignal/exchange-flow-backend/internal/model"
)

// registryRecord is one node as reported by the registry endpoint.
type registryRecord struct {
	PaymentAddress string `json:"payment_address"`
	Tier           string `json:"tier"`
	Collateral     string `json:"collateral"`
}

// fetchRegistry downloads and decodes the node registry. The endpoint has
// shipped three shapes over time: {"FluxNodes":[...]}, {"fluxNodes":[...]},
// and a bare array.
func (c *Classifier) fetchRegistry(ctx context.Context) ([]registryRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.registryURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build registry request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch node registry: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("node registry returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read registry body: %w", err)
	}

	return decodeRegistry(raw)
}

func decodeRegistry(raw []byte) ([]registryRecord, error) {
	var wrapped struct {
		FluxNodesUpper []registryRecord `json:"FluxNodes"`
		FluxNodesLower []registryRecord `json:"fluxNodes"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil {
		if len(wrapped.FluxNodesUpper) > 0 {
			return wrapped.FluxNodesUpper, nil
		}
		if len(wrapped.FluxNodesLower) > 0 {
			return wrapped.FluxNodesLower, nil
		}
	}

	var bare []registryRecord
	if err := json.Unmarshal(raw, &bare); err == nil {
		return bare, nil
	}

	return nil, fmt.Errorf("node registry payload has no recognized shape")
}

// groupByPaymentAddress folds registry records into per-wallet operators with
// tier counts.
func groupByPaymentAddress(records []registryRecord) map[string]model.NodeOperator {
	byAddress := make(map[string]model.NodeOperator, len(records))
	for _, rec := range records {
		if rec.PaymentAddress == "" {
			continue
		}
		op := byAddress[rec.PaymentAddress]
		op.PaymentAddress = rec.PaymentAddress
		op.NodeCount++
		switch strings.ToUpper(rec.Tier) {
		case model.TierCumulus:
			op.Tiers.Cumulus++
		case model.TierNimbus:
			op.Tiers.Nimbus++
		case model.TierStratus:
			op.Tiers.Stratus++
		}
		byAddress[rec.PaymentAddress] = op
	}
	return byAddress
}

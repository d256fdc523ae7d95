package approval

import (
	"fmt"

	"github.com/complyco/caseflow/internal/domain/entity"
)

// Job status vocabulary shared by both pipelines
const (
	JobStatusOperationsComplete = "operations-complete"

	JobStatusKYCPending       = "kyc-pending"
	JobStatusKYCLMROApproved  = "kyc-lmro-approved"
	JobStatusKYCDLMROApproved = "kyc-dlmro-approved"
	JobStatusKYCComplete      = "kyc-complete"
	JobStatusKYCRejected      = "kyc-rejected"

	JobStatusBRAPending       = "bra-pending"
	JobStatusBRALMROApproved  = "bra-lmro-approved"
	JobStatusBRADLMROApproved = "bra-dlmro-approved"
	JobStatusBRAComplete      = "bra-complete"
	JobStatusBRARejected      = "bra-rejected"
)

// KindConfig parameterizes one pipeline: the job status gating its start,
// the substatus written on each transition, and the capability required to
// act at each stage. Both KYC and BRA run the same machine over different
// configs.
type KindConfig struct {
	Kind entity.Kind

	// PredecessorJobStatus is the job status required before Initialize
	PredecessorJobStatus string

	// PendingJobStatus is written when the workflow is initialized
	PendingJobStatus string

	// CompleteJobStatus is written when the final stage approves
	CompleteJobStatus string

	// RejectedJobStatus is written when any stage rejects
	RejectedJobStatus string

	// StageApprovedJobStatus maps a non-final stage approval to the job substatus
	StageApprovedJobStatus map[entity.Stage]string

	// StageCapability maps each review stage to the capability that may act on it
	StageCapability map[entity.Stage]entity.Capability

	// Successor names the pipeline chained automatically on completion ("" for none)
	Successor entity.Kind
}

var kindConfigs = map[entity.Kind]KindConfig{
	entity.KindKYC: {
		Kind:                 entity.KindKYC,
		PredecessorJobStatus: JobStatusOperationsComplete,
		PendingJobStatus:     JobStatusKYCPending,
		CompleteJobStatus:    JobStatusKYCComplete,
		RejectedJobStatus:    JobStatusKYCRejected,
		StageApprovedJobStatus: map[entity.Stage]string{
			entity.StageLMRO:  JobStatusKYCLMROApproved,
			entity.StageDLMRO: JobStatusKYCDLMROApproved,
		},
		StageCapability: map[entity.Stage]entity.Capability{
			entity.StageLMRO:  entity.Capability("kyc.lmro"),
			entity.StageDLMRO: entity.Capability("kyc.dlmro"),
			entity.StageCEO:   entity.Capability("kyc.ceo"),
		},
		Successor: entity.KindBRA,
	},
	entity.KindBRA: {
		Kind:                 entity.KindBRA,
		PredecessorJobStatus: JobStatusKYCComplete,
		PendingJobStatus:     JobStatusBRAPending,
		CompleteJobStatus:    JobStatusBRAComplete,
		RejectedJobStatus:    JobStatusBRARejected,
		StageApprovedJobStatus: map[entity.Stage]string{
			entity.StageLMRO:  JobStatusBRALMROApproved,
			entity.StageDLMRO: JobStatusBRADLMROApproved,
		},
		StageCapability: map[entity.Stage]entity.Capability{
			entity.StageLMRO:  entity.Capability("bra.lmro"),
			entity.StageDLMRO: entity.Capability("bra.dlmro"),
			entity.StageCEO:   entity.Capability("bra.ceo"),
		},
	},
}

// ConfigFor returns the pipeline configuration for a kind
func ConfigFor(kind entity.Kind) (KindConfig, error) {
	cfg, ok := kindConfigs[kind]
	if !ok {
		return KindConfig{}, fmt.Errorf("unknown workflow kind: %s", kind)
	}
	return cfg, nil
}

// stageOrder is the fixed review sequence
var stageOrder = []entity.Stage{entity.StageLMRO, entity.StageDLMRO, entity.StageCEO}

// PredecessorStage returns the stage immediately before the given review
// stage, or "" for the first stage.
func PredecessorStage(stage entity.Stage) entity.Stage {
	for i, s := range stageOrder {
		if s == stage && i > 0 {
			return stageOrder[i-1]
		}
	}
	return ""
}

package metrics

// Pre-defined metrics for the consensus node. All metrics live in
// DefaultRegistry so they are globally accessible without passing a
// registry around.

var (
	// ---- Consensus / view metrics ----

	// CurrentView tracks the highest view the node has entered.
	CurrentView = DefaultRegistry.Gauge("consensus.view")
	// CurrentEpoch tracks the highest epoch the node has entered.
	CurrentEpoch = DefaultRegistry.Gauge("consensus.epoch")
	// ViewTimeouts counts views that expired without a decide.
	ViewTimeouts = DefaultRegistry.Counter("consensus.view_timeouts")
	// BlocksDecided counts blocks that reached the decide state.
	BlocksDecided = DefaultRegistry.Counter("consensus.blocks_decided")
	// BlockDecideLatency records the time from propose to decide, in ms.
	BlockDecideLatency = DefaultRegistry.Histogram("consensus.decide_latency_ms")

	// ---- Distributed random beacon metrics ----

	// DRBCheckpointHeight tracks the height of the most recent DRB checkpoint.
	DRBCheckpointHeight = DefaultRegistry.Gauge("drb.checkpoint_height")
	// DRBIterations counts hash-chain iterations computed since process start.
	DRBIterations = DefaultRegistry.Counter("drb.iterations")
	// DRBResumes counts how many times DRB computation resumed from a
	// checkpoint rather than starting from the seed.
	DRBResumes = DefaultRegistry.Counter("drb.resumes")

	// ---- AVID-M dispersal metrics ----

	// AVIDMSharesDispersed counts shares successfully dispersed to peers.
	AVIDMSharesDispersed = DefaultRegistry.Counter("avidm.shares_dispersed")
	// AVIDMShareVerifyOK counts shares that passed per-share verification.
	AVIDMShareVerifyOK = DefaultRegistry.Counter("avidm.share_verify_ok")
	// AVIDMShareVerifyFail counts shares that failed per-share verification.
	AVIDMShareVerifyFail = DefaultRegistry.Counter("avidm.share_verify_fail")
	// AVIDMRecoverLatency records payload reconstruction time in ms.
	AVIDMRecoverLatency = DefaultRegistry.Histogram("avidm.recover_latency_ms")

	// ---- Stake table metrics ----

	// StakeTableValidators tracks the number of active validators in the
	// most recently published epoch's stake table.
	StakeTableValidators = DefaultRegistry.Gauge("stake.validators")
	// StakeTableEventsProcessed counts contract events folded into the
	// validator map.
	StakeTableEventsProcessed = DefaultRegistry.Counter("stake.events_processed")
	// StakeTablePublishRejections counts validators dropped by the
	// epoch-publish post-filter (zero stake, no delegator, below ratio floor).
	StakeTablePublishRejections = DefaultRegistry.Counter("stake.publish_rejections")

	// ---- Leader selection metrics ----

	// LeaderSelectionLatency records the time to sample a view's leader, in ms.
	LeaderSelectionLatency = DefaultRegistry.Histogram("leader.selection_latency_ms")

	// ---- Block Merkle accumulator metrics ----

	// BlockMerkleHeight tracks the number of leaves appended to the
	// block commitment accumulator.
	BlockMerkleHeight = DefaultRegistry.Gauge("blockmerkle.height")
)

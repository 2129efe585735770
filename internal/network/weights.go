package network

// Config describes the tower and head geometry of a network. All counts are
// required; BoardSize defaults to 8 when zero.
type Config struct {
	// InputPlanes is the number of encoded position planes the network
	// consumes per sample.
	InputPlanes int

	// Filters is the channel width of the residual tower.
	Filters int

	// Blocks is the residual block count. Zero builds just the input stage
	// and the heads.
	Blocks int

	// SEChannels is the squeeze-and-excitation reduction width. Zero builds
	// plain residual blocks without SE.
	SEChannels int

	// BoardSize is the side length of the square input planes.
	BoardSize int

	// PolicyChannels and PolicyOutputs shape the policy head: a 1x1
	// projection down to PolicyChannels followed by a fully connected map
	// onto the PolicyOutputs move distribution.
	PolicyChannels int
	PolicyOutputs  int

	// ValueChannels and ValueFCSize shape the value head, which ends in a
	// single tanh-squashed scalar per sample.
	ValueChannels int
	ValueFCSize   int

	// MaxBatch is the largest batch size Forward accepts. Activation and
	// scratch buffers are sized for it once, at construction.
	MaxBatch int
}

// Weights holds the trained parameters as plain in-memory float32 arrays,
// in the layout the layer loaders expect. Producing these arrays from a
// model file is the caller's concern.
//
// Convolutions in the tower carry no bias of their own; the following
// normalization absorbs it, so each conv pairs with its channel statistics.
type Weights struct {
	Input    ConvBlockWeights
	Residual []ResidualWeights
	Policy   PolicyHeadWeights
	Value    ValueHeadWeights
}

// ConvBlockWeights is one convolution plus the normalization statistics
// applied to its output. The stabilizing epsilon must already be folded into
// the variances.
type ConvBlockWeights struct {
	Filter      []float32 // (cOut, cIn, k, k)
	BNMeans     []float32 // (cOut)
	BNVariances []float32 // (cOut)
}

// SEWeights holds the two fully connected stages of a squeeze-and-excitation
// block: W1 (seChannels, filters), B1 (seChannels), W2 (2*filters,
// seChannels), B2 (2*filters).
type SEWeights struct {
	W1, B1 []float32
	W2, B2 []float32
}

// ResidualWeights holds one residual block. SE is read only when the network
// was configured with SEChannels > 0.
type ResidualWeights struct {
	Conv1 ConvBlockWeights
	Conv2 ConvBlockWeights
	SE    SEWeights
}

// PolicyHeadWeights: 1x1 projection conv block, then the fully connected map
// onto move logits. FCW is (policyOutputs, policyChannels*board*board).
type PolicyHeadWeights struct {
	Conv     ConvBlockWeights
	FCW, FCB []float32
}

// ValueHeadWeights: 1x1 projection conv block, hidden layer FC1
// (valueFCSize, valueChannels*board*board), output layer FC2
// (1, valueFCSize).
type ValueHeadWeights struct {
	Conv       ConvBlockWeights
	FC1W, FC1B []float32
	FC2W, FC2B []float32
}

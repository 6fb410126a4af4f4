// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collection

import "fmt"

// Steps of the claim chain, as reported by RemoteCallError.
const (
	StepClaim    = "claim"
	StepMetadata = "metadata"
	StepIcon     = "icon"
	StepMint     = "mint"
)

// RemoteCallError is a failed platform call in the claim chain.
type RemoteCallError struct {
	Step string
	Err  error
}

func (e *RemoteCallError) Error() string {
	return fmt.Sprintf("%s call failed: %v", e.Step, e.Err)
}

func (e *RemoteCallError) Unwrap() error { return e.Err }

// -*- go -*-
//
// Copyright (c) 2020-2026 Markku Rossi
//
// All rights reserved.
//

// Package math defines integer limits shared by the tallier packages.
package math

const (
	MaxUint8  = 0xff
	MaxUint16 = 0xffff
	MaxUint32 = 0xffffffff

	// NumMessageIDs is the size of the 16-bit message ID space.
	NumMessageIDs = MaxUint16 + 1

	// MaxParties is the largest committee size. Contribution masks
	// are 64-bit words and party IDs travel as signed bytes.
	MaxParties = 64
)

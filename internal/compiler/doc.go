// Package compiler turns CUE object schemas into member descriptors.
//
// A schema declares the relayable surface of one type:
//
//	object: Player: member: {
//		Volume: {category: "property", direction: "HostToClient", result: "scalar"}
//		Play: {
//			category:  "actor"
//			direction: "ClientToHost"
//			params: ["reference Track"]
//			result: "deferred none"
//		}
//	}
//
// Members keep their declaration order. kind may be omitted; it follows
// from the category.
package compiler

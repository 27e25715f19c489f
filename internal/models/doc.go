// Package models defines the core domain models for grouporder.
//
// # Models
//
//   - Group: a shared order list addressed by an opaque ID
//   - Order: one participant's item configuration inside a group
//   - Preset: a device-local order template (see package local)
//
// Groups are stored as a single document ({createdAt, orders[]}). The order
// list is only ever replaced as a whole or appended to atomically, which is
// why Group carries the backend's Revision token.
//
// # Design Principles
//
//  1. Orders are immutable once appended; the list only grows
//  2. Field presence follows the menu rules: Size only for sized categories,
//     HasCheese only for cheese-eligible categories
//  3. Avoid circular references: groups own their orders by value
package models

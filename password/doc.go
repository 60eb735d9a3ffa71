// Package password validates candidate passwords against a policy, rates
// their strength, and hashes them with Argon2id.
//
// [MeetsPolicy] and [Strength] are pure and deterministic. [Argon2] is the
// hashing collaborator the engine uses to verify stored credentials; the
// policy functions never see hashes.
package password

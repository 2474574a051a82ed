package walletstate

import (
	"log/slog"

	"github.com/veilwallet/core/pkg/noteproto"
	"github.com/veilwallet/core/pkg/types"
)

// Scanner consumes compact blocks and mutates a State (spec component
// C3). It holds the crypto collaborators spec §6 requires externally:
// the decryptor, the nullifier deriver, and the wallet's viewing keys.
//
// None of State's own internal/zkp-style packages log; the spec's
// debug/error-level observations during scanning are real requirements,
// though, so the scanner accepts a *slog.Logger (defaulting to
// slog.Default()) rather than writing to stdout directly, keeping the
// library embeddable the way the teacher's `internal/zkp` packages are.
type Scanner struct {
	state      *State
	wallet     Wallet
	decryptor  noteproto.Decryptor
	nullifiers noteproto.NullifierDeriver
	log        *slog.Logger
}

// NewScanner builds a Scanner over state using the given wallet and
// crypto collaborators. A nil logger defaults to slog.Default().
func NewScanner(state *State, wallet Wallet, decryptor noteproto.Decryptor, nullifiers noteproto.NullifierDeriver, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		state:      state,
		wallet:     wallet,
		decryptor:  decryptor,
		nullifiers: nullifiers,
		log:        logger,
	}
}

type decodedFragment struct {
	commitment   types.Commitment
	ephemeralKey [32]byte
	ciphertext   []byte
}

// ScanBlock ingests one compact block, extending the note-commitment
// tree and updating the spendable-note index. It is all-or-nothing: on
// any error the state is left exactly as it was before the call.
func (sc *Scanner) ScanBlock(block types.CompactBlock) error {
	sc.state.mu.Lock()
	defer sc.state.mu.Unlock()

	if err := sc.checkHeight(block.Height); err != nil {
		return err
	}

	decoded, err := sc.decodeFragments(block.Fragments)
	if err != nil {
		return err
	}

	for _, df := range decoded {
		sc.applyFragment(df)
	}

	sc.applyNullifiers(block.Nullifiers)

	height := block.Height
	sc.state.lastBlockHeight = &height
	return nil
}

func (sc *Scanner) checkHeight(height uint32) error {
	last := sc.state.lastBlockHeight
	switch {
	case height == 0 && last == nil:
		return nil
	case last != nil && height == *last+1:
		return nil
	default:
		return ErrUnexpectedBlockHeight
	}
}

// decodeFragments validates every fragment's commitment and ephemeral
// key, and rejects in-block duplicate commitments, before any mutation
// is applied — this is what gives ScanBlock its all-or-nothing
// atomicity even though InvalidNoteCommitment / InvalidEphemeralKey /
// DuplicateCommitment can in principle occur partway through a block's
// fragment list.
func (sc *Scanner) decodeFragments(fragments []types.StateFragment) ([]decodedFragment, error) {
	decoded := make([]decodedFragment, 0, len(fragments))
	seen := make(map[types.Commitment]struct{}, len(fragments))

	for _, f := range fragments {
		commitment, err := types.CommitmentFromBytes(f.NoteCommitment)
		if err != nil {
			return nil, ErrInvalidNoteCommitment
		}
		if len(f.EphemeralKey) != 32 {
			return nil, ErrInvalidEphemeralKey
		}
		if _, dup := seen[commitment]; dup {
			return nil, ErrDuplicateCommitment
		}
		seen[commitment] = struct{}{}

		var ephemeralKey [32]byte
		copy(ephemeralKey[:], f.EphemeralKey)

		decoded = append(decoded, decodedFragment{
			commitment:   commitment,
			ephemeralKey: ephemeralKey,
			ciphertext:   f.EncryptedNote,
		})
	}
	return decoded, nil
}

func (sc *Scanner) applyFragment(df decodedFragment) {
	sc.state.tree.Append(df.commitment)

	note, err := sc.decryptor.Decrypt(df.ciphertext, df.ephemeralKey[:], sc.wallet.IncomingViewingKey())
	if err != nil {
		// Not ours; the leaf stays unwitnessed.
		return
	}

	if err := sc.state.tree.Witness(); err != nil {
		sc.log.Error("witness call failed for a leaf just appended", "err", err)
		return
	}
	path, err := sc.state.tree.AuthenticationPath(df.commitment)
	if err != nil {
		sc.log.Error("authentication path missing for a leaf just witnessed", "commitment", df.commitment.String())
		return
	}

	nullifier := sc.nullifiers.DeriveNullifier(sc.wallet.FullViewingKey(), path.Position, df.commitment)
	sc.state.nullifierMap[nullifier] = df.commitment
	sc.state.unspentSet[df.commitment] = note
}

func (sc *Scanner) applyNullifiers(raw [][]byte) {
	for _, b := range raw {
		nullifier, err := types.NullifierFromBytes(b)
		if err != nil {
			sc.log.Warn("invalid nullifier in compact block, skipping", "err", err)
			continue
		}

		commitment, ok := sc.state.nullifierMap[nullifier]
		if !ok {
			sc.log.Debug("unknown nullifier while scanning", "nullifier", nullifier.String())
			continue
		}

		if note, ok := sc.state.unspentSet[commitment]; ok {
			delete(sc.state.unspentSet, commitment)
			sc.state.spentSet[commitment] = note
			continue
		}
		if _, ok := sc.state.spentSet[commitment]; ok {
			sc.log.Debug("nullifier for already-spent note", "nullifier", nullifier.String())
			continue
		}
		sc.log.Error("nullifier maps to commitment in neither unspent nor spent set", "nullifier", nullifier.String())
	}
}

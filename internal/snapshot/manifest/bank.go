package manifest

import "github.com/yndnr/snapetl-go/internal/core/domain"

// Bank holds the bank fields of a snapshot.
//
// Collections that only matter to a running validator (blockhash ages,
// vote account payloads) are reduced to what a reader of the snapshot can use.
type Bank struct {
	BlockhashQueue      BlockhashQueue
	Ancestors           map[uint64]uint64
	Hash                domain.Hash
	ParentHash          domain.Hash
	ParentSlot          uint64
	HardForks           []HardFork
	TransactionCount    uint64
	TickHeight          uint64
	SignatureCount      uint64
	Capitalization      uint64
	MaxTickHeight       uint64
	HashesPerTick       *uint64
	TicksPerSlot        uint64
	NsPerSlot           Uint128
	GenesisCreationTime int64
	SlotsPerYear        float64
	// AccountsDataLen is only present in the 1.2.0 layout.
	AccountsDataLen uint64
	Slot            uint64
	Epoch           uint64
	BlockHeight     uint64
	CollectorID     domain.Pubkey
	CollectorFees   uint64
	FeeCalculator   FeeCalculator
	FeeRateGovernor FeeRateGovernor
	CollectedRent   uint64
	RentCollector   RentCollector
	EpochSchedule   EpochSchedule
	Inflation       Inflation
	Stakes          Stakes
	UnusedAccounts  UnusedAccounts
	EpochStakes     map[uint64]EpochStakes
	IsDelta         bool
}

type BlockhashQueue struct {
	LastHashIndex uint64
	LastHash      *domain.Hash
	Ages          map[domain.Hash]HashAge
	MaxAge        uint64
}

type HashAge struct {
	FeeCalculator FeeCalculator
	HashIndex     uint64
	Timestamp     uint64
}

type HardFork struct {
	Slot  uint64
	Count uint64
}

type FeeCalculator struct {
	LamportsPerSignature uint64
}

type FeeRateGovernor struct {
	TargetLamportsPerSignature uint64
	TargetSignaturesPerSlot    uint64
	MinLamportsPerSignature    uint64
	MaxLamportsPerSignature    uint64
	BurnPercent                uint8
}

type RentCollector struct {
	Epoch         uint64
	EpochSchedule EpochSchedule
	SlotsPerYear  float64
	Rent          Rent
}

type Rent struct {
	LamportsPerByteYear uint64
	ExemptionThreshold  float64
	BurnPercent         uint8
}

type EpochSchedule struct {
	SlotsPerEpoch            uint64
	LeaderScheduleSlotOffset uint64
	Warmup                   bool
	FirstNormalEpoch         uint64
	FirstNormalSlot          uint64
}

type Inflation struct {
	Initial        float64
	Terminal       float64
	Taper          float64
	FoundationVal  float64
	FoundationTerm float64
	Unused         float64
}

// Stakes is the stake cache of the bank.
type Stakes struct {
	VoteAccounts     map[domain.Pubkey]VoteAccount
	StakeDelegations map[domain.Pubkey]Delegation
	Unused           uint64
	Epoch            uint64
	StakeHistory     []StakeHistoryEntry
}

// VoteAccount is a staked vote account. The account payload is not retained.
type VoteAccount struct {
	Stake      uint64
	Lamports   uint64
	DataLen    uint64
	Owner      domain.Pubkey
	Executable bool
	RentEpoch  uint64
}

type Delegation struct {
	VoterPubkey        domain.Pubkey
	Stake              uint64
	ActivationEpoch    uint64
	DeactivationEpoch  uint64
	WarmupCooldownRate float64
}

type StakeHistoryEntry struct {
	Epoch        uint64
	Effective    uint64
	Activating   uint64
	Deactivating uint64
}

// UnusedAccounts is a legacy section kept only for its size on the wire.
type UnusedAccounts struct {
	Set1 int
	Set2 int
	Map  int
}

type EpochStakes struct {
	Stakes                Stakes
	TotalStake            uint64
	NodeIDToVoteAccounts  map[domain.Pubkey]NodeVoteAccounts
	EpochAuthorizedVoters map[domain.Pubkey]domain.Pubkey
}

type NodeVoteAccounts struct {
	VoteAccounts []domain.Pubkey
	TotalStake   uint64
}

// Minimum encoded sizes of collection elements, used to bound count prefixes.
const (
	sizeHashAge         = 32 + 24
	sizeU64Pair         = 16
	sizeVoteAccount     = 32 + 8 + 8 + 8 + 32 + 1 + 8
	sizeDelegation      = 32 + 32 + 8 + 8 + 8 + 8
	sizeStakeHistory    = 8 + 24
	sizePubkey          = 32
	sizePubkeyU64       = 40
	sizeStakes          = 8 + 8 + 8 + 8 + 8
	sizeEpochStakes     = 8 + sizeStakes + 8 + 8 + 8
	sizeNodeVoteAccount = 32 + 8 + 8
	sizePubkeyPair      = 64
)

func decodeBank(d *decoder, withDataLen bool) Bank {
	var b Bank
	b.BlockhashQueue = decodeBlockhashQueue(d)

	n := d.length("ancestors", sizeU64Pair)
	b.Ancestors = make(map[uint64]uint64, n)
	for i := 0; i < n && d.err == nil; i++ {
		slot := d.u64("ancestor slot")
		b.Ancestors[slot] = d.u64("ancestor value")
	}

	b.Hash = d.hash("bank hash")
	b.ParentHash = d.hash("parent hash")
	b.ParentSlot = d.u64("parent slot")

	n = d.length("hard forks", sizeU64Pair)
	b.HardForks = make([]HardFork, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		b.HardForks = append(b.HardForks, HardFork{
			Slot:  d.u64("hard fork slot"),
			Count: d.u64("hard fork count"),
		})
	}

	b.TransactionCount = d.u64("transaction count")
	b.TickHeight = d.u64("tick height")
	b.SignatureCount = d.u64("signature count")
	b.Capitalization = d.u64("capitalization")
	b.MaxTickHeight = d.u64("max tick height")
	if d.option("hashes per tick") {
		v := d.u64("hashes per tick")
		b.HashesPerTick = &v
	}
	b.TicksPerSlot = d.u64("ticks per slot")
	b.NsPerSlot = d.u128("ns per slot")
	b.GenesisCreationTime = d.i64("genesis creation time")
	b.SlotsPerYear = d.f64("slots per year")
	if withDataLen {
		b.AccountsDataLen = d.u64("accounts data len")
	}
	b.Slot = d.u64("slot")
	b.Epoch = d.u64("epoch")
	b.BlockHeight = d.u64("block height")
	b.CollectorID = d.pubkey("collector id")
	b.CollectorFees = d.u64("collector fees")
	b.FeeCalculator = FeeCalculator{LamportsPerSignature: d.u64("fee calculator")}
	b.FeeRateGovernor = FeeRateGovernor{
		TargetLamportsPerSignature: d.u64("target lamports per signature"),
		TargetSignaturesPerSlot:    d.u64("target signatures per slot"),
		MinLamportsPerSignature:    d.u64("min lamports per signature"),
		MaxLamportsPerSignature:    d.u64("max lamports per signature"),
		BurnPercent:                d.u8("fee burn percent"),
	}
	b.CollectedRent = d.u64("collected rent")
	b.RentCollector = RentCollector{
		Epoch:         d.u64("rent collector epoch"),
		EpochSchedule: decodeEpochSchedule(d),
		SlotsPerYear:  d.f64("rent collector slots per year"),
		Rent: Rent{
			LamportsPerByteYear: d.u64("lamports per byte year"),
			ExemptionThreshold:  d.f64("exemption threshold"),
			BurnPercent:         d.u8("rent burn percent"),
		},
	}
	b.EpochSchedule = decodeEpochSchedule(d)
	b.Inflation = Inflation{
		Initial:        d.f64("inflation initial"),
		Terminal:       d.f64("inflation terminal"),
		Taper:          d.f64("inflation taper"),
		FoundationVal:  d.f64("inflation foundation"),
		FoundationTerm: d.f64("inflation foundation term"),
		Unused:         d.f64("inflation unused"),
	}
	b.Stakes = decodeStakes(d)
	b.UnusedAccounts = decodeUnusedAccounts(d)

	n = d.length("epoch stakes", sizeEpochStakes)
	b.EpochStakes = make(map[uint64]EpochStakes, n)
	for i := 0; i < n && d.err == nil; i++ {
		epoch := d.u64("epoch stakes epoch")
		b.EpochStakes[epoch] = decodeEpochStakes(d)
	}

	b.IsDelta = d.bool("is delta")
	return b
}

func decodeBlockhashQueue(d *decoder) BlockhashQueue {
	var q BlockhashQueue
	q.LastHashIndex = d.u64("last hash index")
	if d.option("last hash") {
		h := d.hash("last hash")
		q.LastHash = &h
	}
	n := d.length("blockhash ages", sizeHashAge)
	q.Ages = make(map[domain.Hash]HashAge, n)
	for i := 0; i < n && d.err == nil; i++ {
		h := d.hash("blockhash")
		q.Ages[h] = HashAge{
			FeeCalculator: FeeCalculator{LamportsPerSignature: d.u64("age fee calculator")},
			HashIndex:     d.u64("age hash index"),
			Timestamp:     d.u64("age timestamp"),
		}
	}
	q.MaxAge = d.u64("max age")
	return q
}

func decodeEpochSchedule(d *decoder) EpochSchedule {
	return EpochSchedule{
		SlotsPerEpoch:            d.u64("slots per epoch"),
		LeaderScheduleSlotOffset: d.u64("leader schedule slot offset"),
		Warmup:                   d.bool("warmup"),
		FirstNormalEpoch:         d.u64("first normal epoch"),
		FirstNormalSlot:          d.u64("first normal slot"),
	}
}

func decodeStakes(d *decoder) Stakes {
	var s Stakes

	n := d.length("vote accounts", sizeVoteAccount)
	s.VoteAccounts = make(map[domain.Pubkey]VoteAccount, n)
	for i := 0; i < n && d.err == nil; i++ {
		pk := d.pubkey("vote account")
		var va VoteAccount
		va.Stake = d.u64("vote account stake")
		va.Lamports = d.u64("vote account lamports")
		va.DataLen = uint64(len(d.bytes("vote account data")))
		va.Owner = d.pubkey("vote account owner")
		va.Executable = d.bool("vote account executable")
		va.RentEpoch = d.u64("vote account rent epoch")
		s.VoteAccounts[pk] = va
	}

	n = d.length("stake delegations", sizeDelegation)
	s.StakeDelegations = make(map[domain.Pubkey]Delegation, n)
	for i := 0; i < n && d.err == nil; i++ {
		pk := d.pubkey("stake account")
		s.StakeDelegations[pk] = Delegation{
			VoterPubkey:        d.pubkey("voter pubkey"),
			Stake:              d.u64("delegated stake"),
			ActivationEpoch:    d.u64("activation epoch"),
			DeactivationEpoch:  d.u64("deactivation epoch"),
			WarmupCooldownRate: d.f64("warmup cooldown rate"),
		}
	}

	s.Unused = d.u64("stakes unused")
	s.Epoch = d.u64("stakes epoch")

	n = d.length("stake history", sizeStakeHistory)
	s.StakeHistory = make([]StakeHistoryEntry, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		s.StakeHistory = append(s.StakeHistory, StakeHistoryEntry{
			Epoch:        d.u64("stake history epoch"),
			Effective:    d.u64("effective stake"),
			Activating:   d.u64("activating stake"),
			Deactivating: d.u64("deactivating stake"),
		})
	}
	return s
}

func decodeUnusedAccounts(d *decoder) UnusedAccounts {
	var u UnusedAccounts
	u.Set1 = d.length("unused set 1", sizePubkey)
	d.take(u.Set1*sizePubkey, "unused set 1")
	u.Set2 = d.length("unused set 2", sizePubkey)
	d.take(u.Set2*sizePubkey, "unused set 2")
	u.Map = d.length("unused map", sizePubkeyU64)
	d.take(u.Map*sizePubkeyU64, "unused map")
	return u
}

func decodeEpochStakes(d *decoder) EpochStakes {
	var es EpochStakes
	es.Stakes = decodeStakes(d)
	es.TotalStake = d.u64("epoch total stake")

	n := d.length("node vote accounts", sizeNodeVoteAccount)
	es.NodeIDToVoteAccounts = make(map[domain.Pubkey]NodeVoteAccounts, n)
	for i := 0; i < n && d.err == nil; i++ {
		node := d.pubkey("node id")
		m := d.length("node vote account list", sizePubkey)
		nva := NodeVoteAccounts{VoteAccounts: make([]domain.Pubkey, 0, m)}
		for j := 0; j < m && d.err == nil; j++ {
			nva.VoteAccounts = append(nva.VoteAccounts, d.pubkey("node vote account"))
		}
		nva.TotalStake = d.u64("node total stake")
		es.NodeIDToVoteAccounts[node] = nva
	}

	n = d.length("epoch authorized voters", sizePubkeyPair)
	es.EpochAuthorizedVoters = make(map[domain.Pubkey]domain.Pubkey, n)
	for i := 0; i < n && d.err == nil; i++ {
		vote := d.pubkey("vote account")
		es.EpochAuthorizedVoters[vote] = d.pubkey("authorized voter")
	}
	return es
}

package reconciliation

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

var (
	noteHundred = decimal.NewFromInt(100)
	noteFifty   = decimal.NewFromInt(50)
	noteTwenty  = decimal.NewFromInt(20)
	noteTen     = decimal.NewFromInt(10)
	noteFive    = decimal.NewFromInt(5)

	coinTwoDollar  = decimal.NewFromInt(2)
	coinOneDollar  = decimal.NewFromInt(1)
	coinFiftyCent  = decimal.New(50, -2)
	coinTwentyCent = decimal.New(20, -2)
	coinTenCent    = decimal.New(10, -2)
	coinFiveCent   = decimal.New(5, -2)

	// Value of one roll of each coin type.
	rollOneDollar  = decimal.NewFromInt(20)
	rollTwoDollar  = decimal.NewFromInt(50)
	rollFiftyCent  = decimal.NewFromInt(10)
	rollTwentyCent = decimal.NewFromInt(4)
	rollTenCent    = decimal.NewFromInt(4)
	rollFiveCent   = decimal.NewFromInt(2)
)

// Notes counts banknotes by face value.
type Notes struct {
	Hundreds int64 `json:"hundreds"`
	Fifties  int64 `json:"fifties"`
	Twenties int64 `json:"twenties"`
	Tens     int64 `json:"tens"`
	Fives    int64 `json:"fives"`
}

// LooseCoins counts individual coins. Counts may be fractional.
type LooseCoins struct {
	Dollars2 decimal.Decimal `json:"dollars2"`
	Dollars1 decimal.Decimal `json:"dollars1"`
	Cents50  decimal.Decimal `json:"cents50"`
	Cents20  decimal.Decimal `json:"cents20"`
	Cents10  decimal.Decimal `json:"cents10"`
	Cents5   decimal.Decimal `json:"cents5"`
}

// CoinRolls counts bundled rolls of coins.
type CoinRolls struct {
	Dollar1 int64 `json:"dollar1"`
	Dollar2 int64 `json:"dollar2"`
	Cents50 int64 `json:"cents50"`
	Cents20 int64 `json:"cents20"`
	Cents10 int64 `json:"cents10"`
	Cents5  int64 `json:"cents5"`
}

// DenominationCount is the raw count for one register. Totals are always
// derived from it.
type DenominationCount struct {
	Notes      Notes      `json:"notes"`
	LooseCoins LooseCoins `json:"looseCoins"`
	CoinRolls  CoinRolls  `json:"coinRolls"`
}

// RegisterBreakdown is the monetary value of a DenominationCount.
type RegisterBreakdown struct {
	NotesTotal    decimal.Decimal `json:"notesTotal"`
	LooseTotal    decimal.Decimal `json:"looseTotal"`
	CoinRollTotal decimal.Decimal `json:"coinRollTotal"`
	Total         decimal.Decimal `json:"total"`
}

// ComputeBreakdown converts counts to money. Fractional loose coin counts
// are rounded to whole cents.
func ComputeBreakdown(c DenominationCount) RegisterBreakdown {
	notes := Sum(
		noteHundred.Mul(decimal.NewFromInt(c.Notes.Hundreds)),
		noteFifty.Mul(decimal.NewFromInt(c.Notes.Fifties)),
		noteTwenty.Mul(decimal.NewFromInt(c.Notes.Twenties)),
		noteTen.Mul(decimal.NewFromInt(c.Notes.Tens)),
		noteFive.Mul(decimal.NewFromInt(c.Notes.Fives)),
	)
	loose := Cents(Sum(
		coinTwoDollar.Mul(c.LooseCoins.Dollars2),
		coinOneDollar.Mul(c.LooseCoins.Dollars1),
		coinFiftyCent.Mul(c.LooseCoins.Cents50),
		coinTwentyCent.Mul(c.LooseCoins.Cents20),
		coinTenCent.Mul(c.LooseCoins.Cents10),
		coinFiveCent.Mul(c.LooseCoins.Cents5),
	))
	rolls := Sum(
		rollOneDollar.Mul(decimal.NewFromInt(c.CoinRolls.Dollar1)),
		rollTwoDollar.Mul(decimal.NewFromInt(c.CoinRolls.Dollar2)),
		rollFiftyCent.Mul(decimal.NewFromInt(c.CoinRolls.Cents50)),
		rollTwentyCent.Mul(decimal.NewFromInt(c.CoinRolls.Cents20)),
		rollTenCent.Mul(decimal.NewFromInt(c.CoinRolls.Cents10)),
		rollFiveCent.Mul(decimal.NewFromInt(c.CoinRolls.Cents5)),
	)
	return RegisterBreakdown{
		NotesTotal:    notes,
		LooseTotal:    loose,
		CoinRollTotal: rolls,
		Total:         notes.Add(loose).Add(rolls),
	}
}

// Denomination names a single count field, e.g. "notes.hundreds".
type Denomination string

const (
	NoteHundreds  Denomination = "notes.hundreds"
	NoteFifties   Denomination = "notes.fifties"
	NoteTwenties  Denomination = "notes.twenties"
	NoteTens      Denomination = "notes.tens"
	NoteFives     Denomination = "notes.fives"
	LooseDollars2 Denomination = "looseCoins.dollars2"
	LooseDollars1 Denomination = "looseCoins.dollars1"
	LooseCents50  Denomination = "looseCoins.cents50"
	LooseCents20  Denomination = "looseCoins.cents20"
	LooseCents10  Denomination = "looseCoins.cents10"
	LooseCents5   Denomination = "looseCoins.cents5"
	RollDollar1   Denomination = "coinRolls.dollar1"
	RollDollar2   Denomination = "coinRolls.dollar2"
	RollCents50   Denomination = "coinRolls.cents50"
	RollCents20   Denomination = "coinRolls.cents20"
	RollCents10   Denomination = "coinRolls.cents10"
	RollCents5    Denomination = "coinRolls.cents5"
)

// Denominations lists every count field in entry order.
func Denominations() []Denomination {
	return []Denomination{
		NoteHundreds, NoteFifties, NoteTwenties, NoteTens, NoteFives,
		LooseDollars2, LooseDollars1, LooseCents50, LooseCents20, LooseCents10, LooseCents5,
		RollDollar1, RollDollar2, RollCents50, RollCents20, RollCents10, RollCents5,
	}
}

// Set assigns a field from raw input. Malformed values become zero; only an
// unknown denomination is an error.
func (c *DenominationCount) Set(d Denomination, raw string) error {
	switch d {
	case NoteHundreds:
		c.Notes.Hundreds = ParseCount(raw)
	case NoteFifties:
		c.Notes.Fifties = ParseCount(raw)
	case NoteTwenties:
		c.Notes.Twenties = ParseCount(raw)
	case NoteTens:
		c.Notes.Tens = ParseCount(raw)
	case NoteFives:
		c.Notes.Fives = ParseCount(raw)
	case LooseDollars2:
		c.LooseCoins.Dollars2 = ParseAmount(raw)
	case LooseDollars1:
		c.LooseCoins.Dollars1 = ParseAmount(raw)
	case LooseCents50:
		c.LooseCoins.Cents50 = ParseAmount(raw)
	case LooseCents20:
		c.LooseCoins.Cents20 = ParseAmount(raw)
	case LooseCents10:
		c.LooseCoins.Cents10 = ParseAmount(raw)
	case LooseCents5:
		c.LooseCoins.Cents5 = ParseAmount(raw)
	case RollDollar1:
		c.CoinRolls.Dollar1 = ParseCount(raw)
	case RollDollar2:
		c.CoinRolls.Dollar2 = ParseCount(raw)
	case RollCents50:
		c.CoinRolls.Cents50 = ParseCount(raw)
	case RollCents20:
		c.CoinRolls.Cents20 = ParseCount(raw)
	case RollCents10:
		c.CoinRolls.Cents10 = ParseCount(raw)
	case RollCents5:
		c.CoinRolls.Cents5 = ParseCount(raw)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDenomination, string(d))
	}
	return nil
}

// Get returns the stored count of a field as text. Loose coin counts keep
// their full precision, so Set(d, Get(d)) leaves the count unchanged.
func (c DenominationCount) Get(d Denomination) (string, error) {
	count := func(n int64) (string, error) { return strconv.FormatInt(n, 10), nil }
	amount := func(v decimal.Decimal) (string, error) { return v.String(), nil }
	switch d {
	case NoteHundreds:
		return count(c.Notes.Hundreds)
	case NoteFifties:
		return count(c.Notes.Fifties)
	case NoteTwenties:
		return count(c.Notes.Twenties)
	case NoteTens:
		return count(c.Notes.Tens)
	case NoteFives:
		return count(c.Notes.Fives)
	case LooseDollars2:
		return amount(c.LooseCoins.Dollars2)
	case LooseDollars1:
		return amount(c.LooseCoins.Dollars1)
	case LooseCents50:
		return amount(c.LooseCoins.Cents50)
	case LooseCents20:
		return amount(c.LooseCoins.Cents20)
	case LooseCents10:
		return amount(c.LooseCoins.Cents10)
	case LooseCents5:
		return amount(c.LooseCoins.Cents5)
	case RollDollar1:
		return count(c.CoinRolls.Dollar1)
	case RollDollar2:
		return count(c.CoinRolls.Dollar2)
	case RollCents50:
		return count(c.CoinRolls.Cents50)
	case RollCents20:
		return count(c.CoinRolls.Cents20)
	case RollCents10:
		return count(c.CoinRolls.Cents10)
	case RollCents5:
		return count(c.CoinRolls.Cents5)
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDenomination, string(d))
}

var denominationLabels = map[Denomination]string{
	NoteHundreds:  "$100 notes",
	NoteFifties:   "$50 notes",
	NoteTwenties:  "$20 notes",
	NoteTens:      "$10 notes",
	NoteFives:     "$5 notes",
	LooseDollars2: "$2 coins (count)",
	LooseDollars1: "$1 coins (count)",
	LooseCents50:  "50c coins (count)",
	LooseCents20:  "20c coins (count)",
	LooseCents10:  "10c coins (count)",
	LooseCents5:   "5c coins (count)",
	RollDollar1:   "$1 rolls",
	RollDollar2:   "$2 rolls",
	RollCents50:   "50c rolls",
	RollCents20:   "20c rolls",
	RollCents10:   "10c rolls",
	RollCents5:    "5c rolls",
}

// Label is a human-readable name for d.
func (d Denomination) Label() string {
	if l, ok := denominationLabels[d]; ok {
		return l
	}
	return string(d)
}

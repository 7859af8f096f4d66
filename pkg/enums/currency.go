package enums

// Currency is the ISO code of the display currency. Stored amounts are
// always integer minor units (pesewas for GHS).
type Currency string

const CurrencyGHS Currency = "GHS"

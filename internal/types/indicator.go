package types

type IndicatorType string

const (
	IndicatorTypeATR            IndicatorType = "atr"
	IndicatorTypeMA             IndicatorType = "ma"
	IndicatorTypeEMA            IndicatorType = "ema"
	IndicatorTypeRSI            IndicatorType = "rsi"
	IndicatorTypeMACD           IndicatorType = "macd"
	IndicatorTypeBollingerBands IndicatorType = "bollinger_bands"
	IndicatorTypeOBV            IndicatorType = "obv"
	IndicatorTypeVWAP           IndicatorType = "vwap"
	IndicatorTypeMomentum       IndicatorType = "momentum"
)

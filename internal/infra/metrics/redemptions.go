package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		redemptionsTotal,
		redeemedPointsTotal,
		featureGateChecksTotal,
		referralCodesIssuedTotal,
	)
}

var (
	redemptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_redemptions_total",
			Help: "Redemption attempts by result (succeeded, insufficient_points, tier_too_low, ...).",
		},
		[]string{"result"},
	)

	redeemedPointsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "loyalty_redeemed_points_total",
			Help: "Points spent on successful redemptions.",
		},
	)

	featureGateChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entitlement_feature_checks_total",
			Help: "Feature gate decisions by result (granted/no_subscription/plan_too_low).",
		},
		[]string{"result"},
	)

	referralCodesIssuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "loyalty_referral_codes_issued_total",
			Help: "Referral codes generated (existing codes returned are not counted).",
		},
	)
)

func IncRedemption(result string) {
	redemptionsTotal.WithLabelValues(norm(result)).Inc()
}

func AddRedeemedPoints(points int64) {
	redeemedPointsTotal.Add(float64(points))
}

func IncFeatureCheck(result string) {
	featureGateChecksTotal.WithLabelValues(norm(result)).Inc()
}

func IncReferralCodeIssued() {
	referralCodesIssuedTotal.Inc()
}

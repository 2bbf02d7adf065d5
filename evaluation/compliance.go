package evaluation

// CheckCompliance compares a record against the standards. Every check
// needs its metric to have been computed.
func CheckCompliance(r *Record, s Standards) Compliance {
	checks := map[string]bool{
		MetricRMSDB:          r.RMSDB.OK() && r.RMSDB.Value >= s.MinRMSDB,
		MetricPeakDB:         r.PeakDB.OK() && r.PeakDB.Value <= s.MaxPeakDB,
		MetricCV:             r.CV.OK() && r.CV.Value <= s.MaxCV,
		MetricSNR:            r.SNR.OK() && r.SNR.Value >= s.MinSNR,
		MetricNonSpeechRatio: r.NonSpeechRatio.OK() && r.NonSpeechRatio.Value <= s.MaxNonSpeechRatio,
		MetricMaxSilence:     r.MaxSilence.OK() && r.MaxSilence.Value <= s.MaxSilenceSeconds,
	}

	compliant := true
	for _, ok := range checks {
		compliant = compliant && ok
	}
	return Compliance{Compliant: compliant, Checks: checks}
}

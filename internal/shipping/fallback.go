package shipping

// The first digit of a CEP identifies the postal region; combined with the
// second digit it narrows to a state for every region that spans more than
// one. This table is the degraded path when ViaCEP is unreachable: coarse,
// but enough to pick the right rate table.
var cepPrefixUF = map[string]string{
	"0": "SP", "1": "SP",
	"20": "RJ", "21": "RJ", "22": "RJ", "23": "RJ", "24": "RJ",
	"25": "RJ", "26": "RJ", "27": "RJ", "28": "RJ",
	"29": "ES",
	"30": "MG", "31": "MG", "32": "MG", "33": "MG", "34": "MG",
	"35": "MG", "36": "MG", "37": "MG", "38": "MG", "39": "MG",
	"40": "BA", "41": "BA", "42": "BA", "43": "BA", "44": "BA",
	"45": "BA", "46": "BA", "47": "BA", "48": "BA",
	"49": "SE",
	"50": "PE", "51": "PE", "52": "PE", "53": "PE", "54": "PE", "55": "PE", "56": "PE",
	"57": "AL",
	"58": "PB",
	"59": "RN",
	"60": "CE", "61": "CE", "62": "CE", "63": "CE",
	"64": "PI",
	"65": "MA", "66": "PA", "67": "PA", "68": "PA",
	"69": "AM",
	"70": "DF", "71": "DF", "72": "DF", "73": "DF",
	"74": "GO", "75": "GO", "76": "GO",
	"77": "TO",
	"78": "MT", "79": "MS",
	"80": "PR", "81": "PR", "82": "PR", "83": "PR", "84": "PR",
	"85": "PR", "86": "PR", "87": "PR",
	"88": "SC", "89": "SC",
	"90": "RS", "91": "RS", "92": "RS", "93": "RS", "94": "RS",
	"95": "RS", "96": "RS", "97": "RS", "98": "RS", "99": "RS",
}

// RegionFromCEP guesses the UF for a normalized CEP using the prefix table.
// The boolean reports whether the prefix was recognized.
func RegionFromCEP(cep string) (string, bool) {
	if len(cep) < 2 {
		return "", false
	}
	if uf, ok := cepPrefixUF[cep[:2]]; ok {
		return uf, true
	}
	if uf, ok := cepPrefixUF[cep[:1]]; ok {
		return uf, true
	}
	return "", false
}

package techsim

import "strconv"

// Pronoun sets indexed by Gender.
var (
	subjectPronouns    = [...]string{"she", "he", "it", "they", "they"}
	objectPronouns     = [...]string{"her", "him", "it", "them", "them"}
	possessivePronouns = [...]string{"hers", "his", "its", "theirs", "theirs"}
	reflexivePronouns  = [...]string{"herself", "himself", "itself", "themself", "themself"}
	possessiveAdjs     = [...]string{"her", "his", "its", "their", "their"}
)

// placeholders builds the substitution table for one resolved event.
// Positions and item indexes are 1-based in the table.
func (s *Simulation) placeholders(participants []TributeID, lost, gained map[int][]ItemID) map[string]string {
	values := make(map[string]string, len(participants)*8)
	for i, id := range participants {
		t := s.Cast[id]
		n := strconv.Itoa(i + 1)
		values["Tribute"+n] = t.Name
		values["District"+n] = s.DistrictName(id)
		values["Power"+n] = strconv.Itoa(t.Power)
		values["SP"+n] = subjectPronouns[t.Gender]
		values["OP"+n] = objectPronouns[t.Gender]
		values["PP"+n] = possessivePronouns[t.Gender]
		values["RP"+n] = reflexivePronouns[t.Gender]
		values["PA"+n] = possessiveAdjs[t.Gender]
		for k, item := range lost[i] {
			values["ItemL"+n+"_"+strconv.Itoa(k+1)] = s.Items[item].Name
		}
		for k, item := range gained[i] {
			values["ItemG"+n+"_"+strconv.Itoa(k+1)] = s.Items[item].Name
		}
	}
	return values
}

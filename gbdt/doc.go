// Package gbdt loads gradient-boosted tree ensembles exported by XGBoost's
// Booster.save_model in JSON form and scores them without the Python runtime.
//
// Only single-output regression and binary objectives with numerical splits
// are supported. A sample follows the left child when its feature value is
// strictly below the split condition; a missing value (NaN) follows the
// node's default direction.
//
//	m, err := gbdt.LoadFromFile("xgboost_model.json")
//	if err != nil {
//	    return err
//	}
//	price, err := m.PredictSingle(vector)
package gbdt
